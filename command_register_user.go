package auth

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the registration request. OrgCode joins an
// existing organization; without it a new one is created.
type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	OrgCode  string `json:"orgCode,omitempty"`
	OrgName  string `json:"orgName,omitempty"`
	Mode     string `json:"mode"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks required fields, role and mode. The email is checked
// in its normalized form.
func (e RegisterUserMessage) Validate() error {
	e.Email = NormalizeEmail(e.Email)
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&e.Role, validation.Required, validation.By(validRole)),
		validation.Field(&e.Mode, validation.Required, validation.By(validMode)),
		validation.Field(&e.OrgName, validation.Length(0, 200)),
	)
}

// emailPattern is a format check only, no MX lookup
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validRole(value interface{}) error {
	s, _ := value.(string)
	if _, ok := ParseRole(s); !ok {
		return stderrors.New("must be one of ADMIN, MANAGER, PHARMACIST, PROCUREMENT")
	}
	return nil
}

func validMode(value interface{}) error {
	s, _ := value.(string)
	if _, err := ParseMode(s); err != nil {
		return stderrors.New("must be RETAIL or HOSPITAL")
	}
	return nil
}

// RegisterUserHandler creates the organization (when needed) and the user
// in a single transaction and issues the first session token.
type RegisterUserHandler struct {
	repo      RepositoryManager
	tokens    TokenService
	hasher    PasswordAuthenticator
	activity  ActivitySink
	metrics   MetricsCollector
	logger    Logger
	timeout   time.Duration
	useHashid bool
}

// RegisterUserOption configures a RegisterUserHandler
type RegisterUserOption func(*RegisterUserHandler)

// WithRegisterHasher overrides the default bcrypt hasher
func WithRegisterHasher(h PasswordAuthenticator) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		if h != nil {
			r.hasher = h
		}
	}
}

// WithRegisterActivitySink sets the audit sink
func WithRegisterActivitySink(sink ActivitySink) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithRegisterMetrics sets the metrics collector
func WithRegisterMetrics(m MetricsCollector) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		r.metrics = ensureMetrics(m)
	}
}

// WithRegisterLogger sets the logger
func WithRegisterLogger(l Logger) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		r.logger = ensureLogger(l)
	}
}

// WithRegisterTimeout bounds the registration transaction
func WithRegisterTimeout(d time.Duration) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithHashidUserIDs derives user ids from the normalized email
func WithHashidUserIDs(enabled bool) RegisterUserOption {
	return func(r *RegisterUserHandler) {
		r.useHashid = enabled
	}
}

// NewRegisterUserHandler returns a handler that stores through repo and
// signs with tokens
func NewRegisterUserHandler(repo RepositoryManager, tokens TokenService, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:     repo,
		tokens:   tokens,
		hasher:   defaultHasher,
		activity: noopActivitySink{},
		metrics:  nopMetrics{},
		logger:   defLogger{},
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*AuthResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
	}

	res, err := h.execute(ctx, event)
	h.metrics.RecordRegistration(outcomeFor(err))

	if err != nil {
		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventRegisterFailure,
			Email:     NormalizeEmail(event.Email),
			Metadata:  map[string]any{"reason": outcomeFor(err)},
		})
		return nil, err
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:      ActivityEventRegisterSuccess,
		UserID:         res.User.ID.String(),
		OrganizationID: res.User.OrganizationID.String(),
		Email:          res.User.Email,
		Metadata: map[string]any{
			"role":        res.User.Role,
			"joined_code": event.OrgCode != "",
		},
	})
	return res, nil
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*AuthResult, error) {
	if err := event.Validate(); err != nil {
		return nil, validationError(err, "invalid registration request")
	}

	email := NormalizeEmail(event.Email)
	role, _ := ParseRole(event.Role)
	mode, _ := ParseMode(event.Mode)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var result *AuthResult
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		// 1. email must be new
		if _, err := users.FindByEmailTx(ctx, tx, email); err == nil {
			return ErrDuplicateIdentity
		} else if !isNotFound(err) {
			return err
		}

		// 2. hash
		started := time.Now()
		hash, err := h.hasher.HashPassword(event.Password)
		h.metrics.RecordHashDuration(time.Since(started))
		if err != nil {
			return err
		}

		// 3. name
		firstName, lastName := SplitName(event.Name)

		// 4. organization
		org, err := h.resolveOrganization(ctx, tx, event, firstName, mode)
		if err != nil {
			return err
		}

		// 5. user
		user := &User{
			Email:          email,
			PasswordHash:   hash,
			FirstName:      firstName,
			LastName:       lastName,
			Role:           role,
			OrganizationID: org.ID,
		}
		if h.useHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		created, err := users.CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		created.Organization = org

		// 6. token
		token, err := h.tokens.Generate(created)
		if err != nil {
			return err
		}

		// 7. result
		result = &AuthResult{User: created.Sanitized(), Token: token}
		return nil
	})

	if err != nil {
		return nil, registrationError(err)
	}

	h.logger.Info("user registered",
		"user_id", result.User.ID,
		"organization_id", result.User.OrganizationID,
		"role", result.User.Role,
	)
	return result, nil
}

func (h *RegisterUserHandler) resolveOrganization(ctx context.Context, tx bun.IDB, event RegisterUserMessage, firstName string, mode Mode) (*Organization, error) {
	if strings.TrimSpace(event.OrgCode) != "" {
		return resolveOrganizationCode(ctx, h.repo.Organizations(), tx, event.OrgCode)
	}

	name := strings.TrimSpace(event.OrgName)
	if name == "" {
		name = DefaultOrganizationName(firstName, mode)
	}

	return h.repo.Organizations().CreateTx(ctx, tx, &Organization{
		Name: name,
		Type: mode.OrganizationType(),
	})
}

// registrationError keeps the caller facing taxonomy and hides storage
// and crypto details behind an internal error.
func registrationError(err error) error {
	switch {
	case goerrors.Is(err, ErrDuplicateIdentity):
		return ErrDuplicateIdentity
	case goerrors.Is(err, ErrInvalidOrganization):
		return ErrInvalidOrganization
	case goerrors.Is(err, ErrNoEmptyString):
		return ErrNoEmptyString
	case isDuplicate(err):
		return ErrDuplicateIdentity
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
}
