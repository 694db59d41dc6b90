package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther logs users in and resolves identities from session tokens
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	metrics      MetricsCollector
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		metrics:      nopMetrics{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = ensureLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithMetrics configures the metrics collector
func (s *Auther) WithMetrics(m MetricsCollector) *Auther {
	s.metrics = ensureMetrics(m)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a fresh session token. Any
// credential failure is ErrInvalidCredentials and no token is issued.
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, email, password)
	s.metrics.RecordLogin(outcomeFor(err))

	if err != nil {
		recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     NormalizeEmail(email),
			Metadata:  map[string]any{"reason": outcomeFor(err)},
		})
		return nil, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:      ActivityEventLoginSuccess,
		UserID:         res.User.ID.String(),
		OrganizationID: res.User.OrganizationID.String(),
		Email:          res.User.Email,
	})
	return res, nil
}

func (s *Auther) login(ctx context.Context, email, password string) (*AuthResult, error) {
	if NormalizeEmail(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		if IsCredentialsError(err) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("login verify identity error", "error", err)
		return nil, err
	}

	token, err := s.tokenService.Generate(user)
	if err != nil {
		s.logger.Error("login failed to issue token", "user_id", user.ID, "error", err)
		return nil, err
	}

	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// ValidateToken checks a bearer token and records the outcome
func (s *Auther) ValidateToken(token string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(token)
	s.metrics.RecordTokenValidation(outcomeFor(err))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IdentityFromToken validates token and loads the user it names
func (s *Auther) IdentityFromToken(ctx context.Context, token string) (*User, AuthClaims, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.IdentityFromClaims(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// IdentityFromClaims loads the user named by already validated claims.
// The user must still belong to the organization the token was issued for.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (*User, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.provider.FindIdentityByID(ctx, claims.UserID())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if user.OrganizationID.String() != claims.OrganizationID() {
		s.logger.Warn("token organization does not match user", "user_id", user.ID)
		return nil, ErrTokenInvalid
	}

	return user.Sanitized(), nil
}

// IsCredentialsError reports errors that must surface as
// ErrInvalidCredentials
func IsCredentialsError(err error) bool {
	return err != nil && (isNotFound(err) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMismatchedHashAndPassword))
}
