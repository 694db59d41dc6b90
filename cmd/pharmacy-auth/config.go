package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-pharmacy-auth"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PHARMACY_AUTH_"

// AppConfig is the binary configuration. Values load from the YAML file
// first, then PHARMACY_AUTH_* variables, then flags.
type AppConfig struct {
	Auth        auth.Options    `yaml:"auth"`
	HTTP        HTTPConfig      `yaml:"http"`
	Persistence PersistenceConf `yaml:"persistence"`
	Log         LogConfig       `yaml:"log"`
	Session     SessionConfig   `yaml:"session"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit_per_minute"`
	RateBurst       int           `yaml:"rate_burst"`
	Metrics         bool          `yaml:"metrics"`
}

type PersistenceConf struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	DebugSQL bool   `yaml:"debug_sql"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

type SessionConfig struct {
	Dir       string `yaml:"dir"`
	Namespace string `yaml:"namespace"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Auth: auth.Options{
			TokenExpiration: 24 * time.Hour,
			Issuer:          "pharmacy-auth",
			PasswordCost:    auth.DefaultPasswordCost,
		},
		HTTP: HTTPConfig{
			Address:         ":8080",
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       10,
			RateBurst:       5,
			Metrics:         true,
		},
		Persistence: PersistenceConf{
			Driver: "sqlite",
			DSN:    "file:pharmacy-auth.db?cache=shared",
		},
		Session: SessionConfig{
			Namespace: "pharmacy-auth",
		},
	}
}

// Validate checks the loaded configuration. A missing signing secret is
// fatal.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return auth.ErrMissingSigningKey
	}
	if len(c.Auth.SigningKey) < 32 {
		return errors.New("PHARMACY_AUTH_SECRET must be at least 32 bytes", errors.CategoryValidation).
			WithTextCode(auth.TextCodeMissingSigningKey)
	}

	err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.TokenExpiration, validation.Required),
		validation.Field(&c.Auth.PasswordCost, validation.Min(4), validation.Max(31)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth configuration")
	}

	err = validation.ValidateStruct(&c.Persistence,
		validation.Field(&c.Persistence.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.Persistence.DSN, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid persistence configuration")
	}

	err = validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Address, validation.Required),
		validation.Field(&c.HTTP.RateBurst, validation.Min(1)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid http configuration")
	}
	return nil
}

// loadConfig reads path when set and applies environment overrides
func loadConfig(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from lookup. PHARMACY_AUTH_SECRET always wins
// over a secret in the file.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("SECRET", &cfg.Auth.SigningKey)
	str("SECRET_ID", &cfg.Auth.SigningKeyID)
	str("ISSUER", &cfg.Auth.Issuer)
	str("HTTP_ADDRESS", &cfg.HTTP.Address)
	str("DB_DRIVER", &cfg.Persistence.Driver)
	str("DB_DSN", &cfg.Persistence.DSN)
	str("SESSION_DIR", &cfg.Session.Dir)

	if v, ok := lookup(EnvPrefix + "TOKEN_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "PHARMACY_AUTH_TOKEN_TTL is not a duration")
		}
		cfg.Auth.TokenExpiration = ttl
	}

	if v, ok := lookup(EnvPrefix + "PASSWORD_COST"); ok && v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "PHARMACY_AUTH_PASSWORD_COST is not a number")
		}
		cfg.Auth.PasswordCost = cost
	}

	if v, ok := lookup(EnvPrefix + "DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "PHARMACY_AUTH_DEBUG is not a boolean")
		}
		cfg.Log.Debug = debug
	}
	return nil
}
