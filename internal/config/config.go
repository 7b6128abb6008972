package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds all configuration for the application.
type Config struct {
	HTTPPort    int    `json:"http_port" validate:"gte=0"`
	MetricsPort int    `json:"metrics_port" validate:"gte=0"`
	LogLevel    string `json:"log_level" validate:"oneof=debug info warn error"`
	NumWorkers  int    `json:"num_workers" validate:"min=1"`
	Environment string `json:"environment" validate:"oneof=development test production"`

	DB struct {
		Path            string   `json:"path" validate:"required"`
		MaxOpenConns    int      `json:"max_open_conns" validate:"min=1"`
		MaxIdleConns    int      `json:"max_idle_conns" validate:"gte=0"`
		ConnMaxLifetime Duration `json:"conn_max_lifetime" validate:"min=1s"`
		BusyTimeout     Duration `json:"busy_timeout" validate:"min=100ms"`
	} `json:"db"`

	Auth struct {
		JWTSecret string   `json:"jwt_secret" validate:"required,min=16"`
		TokenTTL  Duration `json:"token_ttl" validate:"min=1m"`
	} `json:"auth"`

	Telegram struct {
		BotToken       string   `json:"bot_token" validate:"required"`
		BotUsername    string   `json:"bot_username" validate:"required"`
		AuthMaxAge     Duration `json:"auth_max_age" validate:"min=1s"`
		PendingAuthTTL Duration `json:"pending_auth_ttl" validate:"min=1s"`
		Polling        bool     `json:"polling"`

		// ProbeFallback lets an unconfirmed bot login pass when the bot can
		// message the user. Anyone knowing a Telegram id that has started
		// the bot can then sign in as that user.
		ProbeFallback bool `json:"probe_fallback"`
	} `json:"telegram"`

	CORS struct {
		AllowedOrigins []string `json:"allowed_origins"`
	} `json:"cors"`
}

// Duration is a wrapper around time.Duration that implements JSON marshaling/unmarshaling
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration")
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns a configuration with every optional field filled in.
// Secrets (bot token, bot username, JWT secret) are left empty.
func Default() *Config {
	cfg := &Config{
		HTTPPort:    8080,
		MetricsPort: 9090,
		LogLevel:    "info",
		NumWorkers:  2,
		Environment: EnvDevelopment,
	}
	cfg.DB.Path = "supermock.db"
	cfg.DB.MaxOpenConns = 10
	cfg.DB.MaxIdleConns = 5
	cfg.DB.ConnMaxLifetime = Duration{time.Hour}
	cfg.DB.BusyTimeout = Duration{5 * time.Second}
	cfg.Auth.TokenTTL = Duration{7 * 24 * time.Hour}
	cfg.Telegram.AuthMaxAge = Duration{5 * time.Minute}
	cfg.Telegram.PendingAuthTTL = Duration{5 * time.Minute}
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

// Load builds the configuration from defaults, an optional JSON file and
// environment variables, in that order, and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether test-only endpoints must be disabled.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// applyEnvOverrides overrides config fields with environment variables.
func (c *Config) applyEnvOverrides() error {
	// Telegram overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("BOT_USERNAME"); v != "" {
		c.Telegram.BotUsername = strings.TrimPrefix(v, "@")
	}
	if v := os.Getenv("TELEGRAM_POLLING"); v != "" {
		polling, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing TELEGRAM_POLLING: %w", err)
		}
		c.Telegram.Polling = polling
	}

	if v := os.Getenv("TELEGRAM_PROBE_FALLBACK"); v != "" {
		probe, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing TELEGRAM_PROBE_FALLBACK: %w", err)
		}
		c.Telegram.ProbeFallback = probe
	}

	// Auth overrides
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = Duration{d}
	}

	// APP_ENV wins over NODE_ENV, which older deployments still set.
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	} else if v := os.Getenv("NODE_ENV"); v != "" {
		c.Environment = v
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		var err error
		c.HTTPPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_PORT: %w", err)
		}
	}

	if v := os.Getenv("METRICS_PORT"); v != "" {
		var err error
		c.MetricsPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing METRICS_PORT: %w", err)
		}
	}

	if v := os.Getenv("NUM_WORKERS"); v != "" {
		var err error
		c.NumWorkers, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing NUM_WORKERS: %w", err)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		c.DB.Path = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.CORS.AllowedOrigins = origins
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validate := validator.New()

	// Register custom validation for Duration
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if duration, ok := field.Interface().(Duration); ok {
			return duration.Duration
		}
		return nil
	}, Duration{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		return fmt.Errorf("db.max_idle_conns (%d) cannot exceed db.max_open_conns (%d)", c.DB.MaxIdleConns, c.DB.MaxOpenConns)
	}

	return nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
