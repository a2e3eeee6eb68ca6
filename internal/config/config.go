// Package config loads server configuration from the environment.
//
// LOADING ORDER:
//  1. An optional .env file (godotenv), used in local development and absent in prod.
//  2. Process environment, parsed into Config by caarlos0/env using struct tags.
//  3. Fallbacks and Validate().
//
// Real environment variables always win over .env entries: godotenv.Load never
// overwrites a variable that is already set.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL points at the managed Postgres store. When empty, the server
	// falls back to a local SQLite file at DBPath.
	DatabaseURL      string `env:"DATABASE_URL"`
	DBPath           string `env:"DB_PATH" envDefault:"data/names.db"`
	DBTimeoutSeconds int    `env:"DB_TIMEOUT_SECONDS" envDefault:"5"`
	AutoMigrate      bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret  string `env:"SUPABASE_JWT_SECRET"`
	AuthTimeoutSeconds int    `env:"AUTH_TIMEOUT_SECONDS" envDefault:"5"`

	SentryDSN string `env:"SENTRY_DSN"`

	OpenAIKey              string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL          string `env:"OPENAI_BASE_URL"`
	OpenAIModel            string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GenerateTimeoutSeconds int    `env:"GENERATE_TIMEOUT_SECONDS" envDefault:"30"`
	SuggestPerMinute       int    `env:"SUGGEST_PER_MINUTE" envDefault:"30"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, p := range dotenvPaths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return Config{}, fmt.Errorf("config: loading %s: %w", p, err)
			}
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	// Deployments created for Neon only set NEON_DB_URL.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("NEON_DB_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.SupabaseURL == "" && c.SupabaseJWTSecret == "" {
		errs = append(errs, errors.New("one of SUPABASE_URL or SUPABASE_JWT_SECRET is required"))
	}
	if c.DBTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("DB_TIMEOUT_SECONDS must be positive"))
	}
	if c.AuthTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("AUTH_TIMEOUT_SECONDS must be positive"))
	}
	if c.GenerateTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("GENERATE_TIMEOUT_SECONDS must be positive"))
	}
	if c.SuggestPerMinute <= 0 {
		errs = append(errs, errors.New("SUGGEST_PER_MINUTE must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// UsePostgres reports whether the managed Postgres store is configured.
func (c Config) UsePostgres() bool { return c.DatabaseURL != "" }

func (c Config) DBTimeout() time.Duration {
	return time.Duration(c.DBTimeoutSeconds) * time.Second
}

func (c Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}

func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// SlogLevel maps LOG_LEVEL to a slog.Level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
