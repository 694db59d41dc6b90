package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long a session token stays valid
const DefaultTokenTTL = 24 * time.Hour

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	keys     *KeyRing
	ttl      time.Duration
	issuer   string
	audience jwt.ClaimStrings
	now      func() time.Time
	logger   Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenTTL overrides DefaultTokenTTL
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithTokenIssuer sets the iss claim and requires it on validation
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenAudience sets the aud claim and requires it on validation
func WithTokenAudience(aud ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = jwt.ClaimStrings(aud)
	}
}

// WithTokenClock replaces time.Now
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = ensureLogger(logger)
	}
}

// NewTokenService creates a new TokenService backed by keys
func NewTokenService(keys *KeyRing, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if keys == nil {
		return nil, ErrMissingSigningKey
	}

	ts := &TokenServiceImpl{
		keys:   keys,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts, nil
}

// NewTokenServiceFromConfig builds the key ring and token service from cfg.
// It fails with ErrMissingSigningKey when no secret is configured.
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	retired := make(map[string][]byte, len(cfg.GetRetiredSigningKeys()))
	for kid, key := range cfg.GetRetiredSigningKeys() {
		retired[kid] = []byte(key)
	}

	keys, err := NewKeyRing(cfg.GetSigningKeyID(), []byte(cfg.GetSigningKey()), retired)
	if err != nil {
		return nil, err
	}

	return NewTokenService(keys,
		WithTokenTTL(cfg.GetTokenExpiration()),
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenAudience(cfg.GetAudience()...),
		WithTokenLogger(logger),
	)
}

// TTL returns the lifetime of generated tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate issues a session token for user with the default lifetime
func (ts *TokenServiceImpl) Generate(user *User) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}
	return ts.Issue(ClaimsForUser(user), ts.ttl)
}

// Issue signs claims with an expiry of now+ttl. A zero ttl selects the
// service TTL; a negative ttl yields an already expired token. Positive
// expiries are rounded up to the second, the precision of exp.
func (ts *TokenServiceImpl) Issue(claims *JWTClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	if ttl == 0 {
		ttl = ts.ttl
	}

	now := ts.now()
	out := *claims
	out.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	out.ExpiresAt = jwt.NewNumericDate(expiryFor(now, ttl))
	if out.Issuer == "" {
		out.Issuer = ts.issuer
	}
	if len(out.Audience) == 0 && len(ts.audience) > 0 {
		out.Audience = append(jwt.ClaimStrings(nil), ts.audience...)
	}
	if out.RegisteredClaims.Subject == "" {
		out.RegisteredClaims.Subject = out.UID
	}
	ensureTokenID(&out.RegisteredClaims)

	signed, err := ts.keys.Sign(&out)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Validate parses and validates a token string, returning structured claims.
// An expired token yields ErrTokenExpired, anything else that fails
// verification yields ErrTokenInvalid.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keys.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("token validation failed", "error", err)
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		ts.logger.Warn("token validation could not decode claims")
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func expiryFor(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp
	}
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
