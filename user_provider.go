package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserFinder is the store the provider reads users from
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider verifies credentials against the credential store
type UserProvider struct {
	store  UserFinder
	hasher PasswordAuthenticator
	logger Logger

	dummyOnce sync.Once
	dummy     string
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: defaultHasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = ensureLogger(l)
	return u
}

// WithHasher overrides the password hasher. Call it before the provider
// serves requests.
func (u *UserProvider) WithHasher(h PasswordAuthenticator) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// dummyHash returns a hash of a random secret made with the configured
// hasher, so unknown emails pay the same cost as wrong passwords
func (u *UserProvider) dummyHash() string {
	u.dummyOnce.Do(func() {
		hash, err := u.hasher.HashPassword(uuid.NewString())
		if err != nil {
			u.logger.Warn("failed to derive dummy hash", "error", err)
			hash = fallbackDummyHash
		}
		u.dummy = hash
	})
	return u.dummy
}

// VerifyIdentity will find the user and compare the password. An unknown
// email and a wrong password both return ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// keep timing close to the wrong password path
			_ = u.hasher.ComparePasswordAndHash(password, u.dummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		u.logger.Error("password comparison failed", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return user, nil
}

// FindIdentityByID loads a user by id
func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (*User, error) {
	user, err := u.store.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}

// fallbackDummyHash is a bcrypt hash of a random value at the default cost
const fallbackDummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z2tF3vQ5g0Gq4Y3m1yC9m5bS"
