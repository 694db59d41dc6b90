package auth

import (
	"strings"
	"time"
)

const (
	// DefaultContextKey is where verified claims are stored on the request
	DefaultContextKey = "user"
	// DefaultTokenLookup reads the bearer token from the Authorization header
	DefaultTokenLookup = "header:Authorization"
	// DefaultAuthScheme is the Authorization header scheme
	DefaultAuthScheme = "Bearer"
)

// Options is the plain struct implementation of Config. It is what the
// command line loads from YAML and the environment.
type Options struct {
	SigningKey         string            `yaml:"signing_key" json:"-"`
	SigningKeyID       string            `yaml:"signing_key_id" json:"signing_key_id"`
	RetiredSigningKeys map[string]string `yaml:"retired_signing_keys" json:"-"`
	TokenExpiration    time.Duration     `yaml:"token_expiration" json:"token_expiration"`
	Issuer             string            `yaml:"issuer" json:"issuer"`
	Audience           []string          `yaml:"audience" json:"audience"`
	PasswordCost       int               `yaml:"password_cost" json:"password_cost"`
	ContextKey         string            `yaml:"context_key" json:"context_key"`
	TokenLookup        string            `yaml:"token_lookup" json:"token_lookup"`
	AuthScheme         string            `yaml:"auth_scheme" json:"auth_scheme"`
}

var _ Config = Options{}

func (o Options) GetSigningKey() string {
	return strings.TrimSpace(o.SigningKey)
}

func (o Options) GetSigningKeyID() string {
	if o.SigningKeyID == "" {
		return DefaultSigningKeyID
	}
	return o.SigningKeyID
}

func (o Options) GetRetiredSigningKeys() map[string]string {
	return o.RetiredSigningKeys
}

func (o Options) GetTokenExpiration() time.Duration {
	if o.TokenExpiration <= 0 {
		return DefaultTokenTTL
	}
	return o.TokenExpiration
}

func (o Options) GetIssuer() string {
	return o.Issuer
}

func (o Options) GetAudience() []string {
	return o.Audience
}

func (o Options) GetPasswordCost() int {
	if o.PasswordCost == 0 {
		return DefaultPasswordCost
	}
	return o.PasswordCost
}

func (o Options) GetContextKey() string {
	if o.ContextKey == "" {
		return DefaultContextKey
	}
	return o.ContextKey
}

func (o Options) GetTokenLookup() string {
	if o.TokenLookup == "" {
		return DefaultTokenLookup
	}
	return o.TokenLookup
}

func (o Options) GetAuthScheme() string {
	if o.AuthScheme == "" {
		return DefaultAuthScheme
	}
	return o.AuthScheme
}
