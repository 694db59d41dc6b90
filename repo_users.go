package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store for user records. Every lookup and
// write normalizes the email first.
type Users interface {
	repository.Repository[*User]

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	UpsertByEmail(ctx context.Context, email string, record *User) (*User, error)
	UpsertByEmailTx(ctx context.Context, tx bun.IDB, email string, record *User) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db     *bun.DB
	driver string
	ids    func(email string) uuid.UUID
	now    func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUserIDGenerator sets how ids are derived for new users. The
// default is a random v4 uuid.
func WithUserIDGenerator(fn func(email string) uuid.UUID) UsersOption {
	return func(u *users) {
		if fn != nil {
			u.ids = fn
		}
	}
}

// WithUsersClock replaces time.Now
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsersRepository returns the bun backed Users store
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		driver:     repository.DetectDriver(db),
		ids:        func(string) uuid.UUID { return uuid.New() },
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

// FindByEmailTx loads a user and its organization by normalized email.
// It returns ErrRecordNotFound when no user has that email.
func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrRecordNotFound
	}
	return a.findOne(ctx, tx, "email", email)
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return a.findOne(ctx, tx, "id", uid)
}

func (a *users) findOne(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Organization").
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Wrap(
			repository.MapDatabaseError(err, a.driver),
			errors.CategoryInternal,
			"failed to load user",
		)
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateTx inserts a new user. A unique violation on email, including
// one raised by a concurrent insert, is reported as ErrDuplicateIdentity.
func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil {
		return nil, errors.New("user must not be nil", errors.CategoryInternal)
	}
	a.prepare(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}
	return created, nil
}

func (a *users) UpsertByEmail(ctx context.Context, email string, record *User) (*User, error) {
	return a.UpsertByEmailTx(ctx, a.db, email, record)
}

// UpsertByEmailTx creates the user when email is unknown, otherwise it
// overwrites the stored profile, role and hash. A user never changes
// organization here: a different organization id is ErrOrganizationChange.
func (a *users) UpsertByEmailTx(ctx context.Context, tx bun.IDB, email string, record *User) (*User, error) {
	if record == nil {
		return nil, errors.New("user must not be nil", errors.CategoryInternal)
	}
	record.Email = NormalizeEmail(email)

	existing, err := a.FindByEmailTx(ctx, tx, record.Email)
	switch {
	case err == nil:
		if existing.OrganizationID != record.OrganizationID {
			return nil, ErrOrganizationChange
		}
		now := a.now()
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = &now
		_, err = tx.NewUpdate().
			Model(record).
			Column("first_name", "last_name", "password_hash", "role", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, errors.Wrap(
				repository.MapDatabaseError(err, a.driver),
				errors.CategoryInternal,
				"failed to update user",
			)
		}
		return record, nil
	case isNotFound(err):
		return a.CreateTx(ctx, tx, record)
	default:
		return nil, err
	}
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := a.now()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", loggedInAt).
		Where("?TableAlias.id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to track login")
	}
	user.LoggedInAt = &loggedInAt
	return nil
}

func (a *users) prepare(record *User) {
	record.Email = NormalizeEmail(record.Email)
	if role, ok := ParseRole(string(record.Role)); ok {
		record.Role = role
	}
	if record.ID == uuid.Nil {
		record.ID = a.ids(record.Email)
	}
}
