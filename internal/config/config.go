package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type RetryConfig struct {
	MaxAttempts     uint          `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type APIConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type StubConfig struct {
	Port           string        `mapstructure:"port"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	SecureCookie   bool          `mapstructure:"secure_cookie"`
	Seed           bool          `mapstructure:"seed"`
	// AdminEmail and AdminPassword seed one operator account when both are set.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type Config struct {
	API   APIConfig   `mapstructure:"api"`
	State StateConfig `mapstructure:"state"`
	Log   LogConfig   `mapstructure:"log"`
	Stub  StubConfig  `mapstructure:"stub"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.retry.max_attempts", 3)
	v.SetDefault("api.retry.initial_interval", 200*time.Millisecond)
	v.SetDefault("api.rate_limit.per_second", 10.0)
	v.SetDefault("api.rate_limit.burst", 20)

	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("stub.port", "8000")
	v.SetDefault("stub.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("stub.token_ttl", 24*time.Hour)
	v.SetDefault("stub.code_ttl", 10*time.Minute)
	v.SetDefault("stub.seed", true)
	// Registered so HACKMATCH_STUB_* env vars reach Unmarshal without a config file.
	v.SetDefault("stub.jwt_secret", "")
	v.SetDefault("stub.secure_cookie", false)
	v.SetDefault("stub.admin_email", "")
	v.SetDefault("stub.admin_password", "")
}

// Load reads hackmatch.yaml (optional) and HACKMATCH_* environment overrides.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HACKMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("hackmatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "hackmatch"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if cfg.State.Path == "" {
		cfg.State.Path = defaultStatePath(cfg.State.Backend)
	}
	return &cfg, nil
}

func defaultStatePath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "identity.yaml"
	if backend == "sqlite" {
		name = "state.db"
	}
	return filepath.Join(dir, "hackmatch", name)
}

// Validate checks the client settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url must be set")
	}
	switch c.State.Backend {
	case "file", "sqlite", "memory":
	default:
		return errors.Errorf("state.backend %q is not one of file, sqlite, memory", c.State.Backend)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	return nil
}

// ValidateStub checks the settings the stub server needs.
func (c *Config) ValidateStub() error {
	if c.Stub.JWTSecret == "" {
		return errors.New("stub.jwt_secret must be set")
	}
	if c.Stub.Port == "" {
		c.Stub.Port = "8000"
	}
	return nil
}
