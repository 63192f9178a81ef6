// Package config loads the storefront configuration: built-in defaults, then
// an optional YAML file, then FOODMART_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	EnvPrefix = "FOODMART_"

	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	minJWTSecretLen = 32
)

type Config struct {
	Env struct {
		Service     string `koanf:"service"`
		Development bool   `koanf:"development"`
		LogLevel    string `koanf:"log_level"`
	} `koanf:"env"`

	HTTP struct {
		Port              string        `koanf:"port"`
		ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
		ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
		MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	} `koanf:"http"`

	Store struct {
		Driver     string `koanf:"driver"`
		DSN        string `koanf:"dsn"`
		BcryptCost int    `koanf:"bcrypt_cost"`
	} `koanf:"store"`

	Auth struct {
		JWTSecret        string        `koanf:"jwt_secret"`
		TokenTTL         time.Duration `koanf:"token_ttl"`
		CookieName       string        `koanf:"cookie_name"`
		LoginLimitPerMin int           `koanf:"login_limit_per_min"`
	} `koanf:"auth"`

	Session struct {
		CookieName string        `koanf:"cookie_name"`
		MaxAge     time.Duration `koanf:"max_age"`
	} `koanf:"session"`

	Metrics struct {
		Enabled bool   `koanf:"enabled"`
		Token   string `koanf:"token"`
	} `koanf:"metrics"`

	Seed struct {
		AdminEmail    string `koanf:"admin_email"`
		AdminPassword string `koanf:"admin_password"`
	} `koanf:"seed"`
}

func Default() *Config {
	cfg := &Config{}

	cfg.Env.Service = "storefront"
	cfg.Env.Development = false
	cfg.Env.LogLevel = "info"

	cfg.HTTP.Port = "8080"
	cfg.HTTP.ReadHeaderTimeout = 5 * time.Second
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.HTTP.MaxBodyBytes = 1 << 20

	cfg.Store.Driver = DriverMemory
	cfg.Store.BcryptCost = 10

	cfg.Auth.TokenTTL = 12 * time.Hour
	cfg.Auth.CookieName = "admin_token"
	cfg.Auth.LoginLimitPerMin = 5

	cfg.Session.CookieName = "sid"
	cfg.Session.MaxAge = 30 * 24 * time.Hour

	cfg.Metrics.Enabled = true

	cfg.Seed.AdminEmail = "admin@foodmart.com"
	cfg.Seed.AdminPassword = "admin123"

	return cfg
}

// Load reads the YAML file at path when it is non-empty, then applies
// FOODMART_* variables from environ. FOODMART_HTTP_PORT maps to http.port and
// FOODMART_AUTH_JWT_SECRET to auth.jwt_secret.
func Load(path string, environ []string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   func() []string { return environ },
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey turns FOODMART_SECTION_SOME_KEY into section.some_key. Only the
// first underscore separates the section.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.Replace(k, "_", ".", 1), v
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return errors.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		if !c.Env.Development {
			return errors.Errorf("auth.jwt_secret is required and must be at least %d chars", minJWTSecretLen)
		}
		c.Auth.JWTSecret = "dev-secret-dev-secret-dev-secret"
	}

	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.LoginLimitPerMin <= 0 {
		return errors.New("auth.login_limit_per_min must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	if strings.HasPrefix(c.HTTP.Port, ":") {
		return c.HTTP.Port
	}
	return ":" + c.HTTP.Port
}
