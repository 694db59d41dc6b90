package auth

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SeedOrganization is the tenant demo accounts are provisioned in. The
// join code makes seeding repeatable: a second run finds the same tenant.
type SeedOrganization struct {
	Name     string `yaml:"name" json:"name"`
	Mode     string `yaml:"mode" json:"mode"`
	JoinCode string `yaml:"join_code" json:"join_code"`
}

// Validate checks the organization block
func (o SeedOrganization) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&o.Mode, validation.Required, validation.By(validMode)),
		validation.Field(&o.JoinCode, validation.Required, validation.Length(4, 64)),
	)
}

// SeedAccount is one demo login
type SeedAccount struct {
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"-"`
	Role     string `yaml:"role" json:"role"`
}

// Validate uses the same rules as registration
func (a SeedAccount) Validate() error {
	a.Email = NormalizeEmail(a.Email)
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&a.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&a.Role, validation.Required, validation.By(validRole)),
	)
}

// SeedFixture is the document read by the seed command
type SeedFixture struct {
	Organization SeedOrganization `yaml:"organization" json:"organization"`
	Accounts     []SeedAccount    `yaml:"accounts" json:"accounts"`
}

// Validate checks the organization and every account
func (f SeedFixture) Validate() error {
	if err := f.Organization.Validate(); err != nil {
		return validationError(err, "invalid seed organization")
	}
	if len(f.Accounts) == 0 {
		return errors.New("seed fixture has no accounts", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	}
	for i, account := range f.Accounts {
		if err := account.Validate(); err != nil {
			return validationError(err, fmt.Sprintf("invalid seed account #%d", i+1))
		}
	}
	return nil
}

type seeder struct {
	logger   Logger
	activity ActivitySink
}

// SeedOption configures SeedAccounts
type SeedOption func(*seeder)

// WithSeedLogger sets the logger
func WithSeedLogger(l Logger) SeedOption {
	return func(s *seeder) {
		s.logger = ensureLogger(l)
	}
}

// WithSeedActivitySink sets the audit sink
func WithSeedActivitySink(sink ActivitySink) SeedOption {
	return func(s *seeder) {
		s.activity = normalizeActivitySink(sink)
	}
}

// SeedAccounts provisions the fixture organization and accounts. Every
// password is hashed like a registration would. Existing accounts are
// updated in place, so running it twice leaves the same rows.
func SeedAccounts(ctx context.Context, repo RepositoryManager, hasher PasswordAuthenticator, fixture SeedFixture, opts ...SeedOption) ([]*User, error) {
	s := &seeder{logger: defLogger{}, activity: noopActivitySink{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if hasher == nil {
		hasher = defaultHasher
	}

	if err := fixture.Validate(); err != nil {
		return nil, err
	}

	mode, _ := ParseMode(fixture.Organization.Mode)

	hashes := make([]string, len(fixture.Accounts))
	for i, account := range fixture.Accounts {
		hash, err := hasher.HashPassword(account.Password)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash seed password")
		}
		hashes[i] = hash
	}

	var seeded []*User
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		orgs := repo.Organizations()
		org, err := orgs.FindByJoinCodeTx(ctx, tx, NormalizeJoinCode(fixture.Organization.JoinCode))
		switch {
		case err == nil:
		case isNotFound(err):
			org, err = orgs.CreateTx(ctx, tx, &Organization{
				Name:     fixture.Organization.Name,
				Type:     mode.OrganizationType(),
				JoinCode: fixture.Organization.JoinCode,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}

		seeded = make([]*User, 0, len(fixture.Accounts))
		for i, account := range fixture.Accounts {
			role, _ := ParseRole(account.Role)
			firstName, lastName := SplitName(account.Name)

			user, err := repo.Users().UpsertByEmailTx(ctx, tx, account.Email, &User{
				PasswordHash:   hashes[i],
				FirstName:      firstName,
				LastName:       lastName,
				Role:           role,
				OrganizationID: org.ID,
			})
			if err != nil {
				if errors.Is(err, ErrOrganizationChange) {
					s.logger.Error("seed account belongs to another organization",
						"email", NormalizeEmail(account.Email),
						"organization", fixture.Organization.Name,
					)
				}
				return err
			}
			user.Organization = org
			seeded = append(seeded, user.Sanitized())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrganizationChange) {
			return nil, ErrOrganizationChange
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to seed accounts")
	}

	for _, user := range seeded {
		recordActivity(ctx, s.activity, s.logger, ActivityEvent{
			EventType:      ActivityEventSeeded,
			UserID:         user.ID.String(),
			OrganizationID: user.OrganizationID.String(),
			Email:          user.Email,
			Metadata:       map[string]any{"role": user.Role},
		})
	}

	s.logger.Info("accounts seeded", "count", len(seeded), "organization", fixture.Organization.Name)
	return seeded, nil
}
