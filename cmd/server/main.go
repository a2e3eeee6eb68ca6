// Package main is the entry point for the pet-namer API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (internal/config: .env file + environment variables)
// 2. Create dependencies (logger, store, token verifier, generator, telemetry)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. This project has
// two: cmd/server (this one) and cmd/migrate (schema migrations for Postgres).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/config"
	"github.com/sakif/pet-namer/internal/generator"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/repository/postgres"
	sqliteRepo "github.com/sakif/pet-namer/internal/repository/sqlite"
	"github.com/sakif/pet-namer/internal/server"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// version is overridden at build time: -ldflags "-X main.version=1.2.3".
var version = "dev"

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: the level itself comes from config.
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// === 2. LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL picks the minimum; production runs at info.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	// === 3. ERROR TRACKING ===
	// An empty SENTRY_DSN leaves Sentry disabled; failures are still logged.
	if err := telemetry.Init(cfg.SentryDSN, cfg.Env, version); err != nil {
		return err
	}
	defer telemetry.Flush(2 * time.Second)
	if cfg.SentryDSN == "" {
		logger.Warn("SENTRY_DSN not set, errors are only logged")
	}

	// === 4. STORE ===
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	// === 5. IDENTITY ===
	verifier, err := newVerifier(cfg)
	if err != nil {
		store.Close()
		return err
	}

	// === 6. OPTIONAL: NAME SUGGESTIONS ===
	var gen generator.Generator
	if cfg.OpenAIKey != "" {
		gen, err = generator.NewOpenAI(generator.OpenAIConfig{
			APIKey:    cfg.OpenAIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			Timeout:   cfg.GenerateTimeout(),
			PerMinute: cfg.SuggestPerMinute,
		})
		if err != nil {
			store.Close()
			return err
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, /api/suggestNames is disabled")
	}

	// === 7. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		AuthTimeout: cfg.AuthTimeout(),
	}, server.Deps{
		Store:     store,
		Verifier:  verifier,
		Generator: gen,
		Reporter:  telemetry.NewSentryReporter(logger, nil),
		Metrics:   metrics.New(prometheus.NewRegistry()),
	}, logger)
	if err != nil {
		store.Close()
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

// openStore picks Postgres when a database URL is configured, SQLite otherwise.
func openStore(cfg config.Config, logger *slog.Logger) (server.Store, error) {
	if cfg.UsePostgres() {
		if cfg.AutoMigrate {
			logger.Info("applying migrations")
			if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		db, err := postgres.Open(postgres.Config{DSN: cfg.DatabaseURL, Timeout: cfg.DBTimeout()})
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres store")
		return db, nil
	}

	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dbDir, err)
	}
	db, err := sqliteRepo.New(cfg.DBPath, cfg.DBTimeout())
	if err != nil {
		return nil, err
	}
	logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
	return db, nil
}

// newVerifier verifies locally when the project's JWT secret is known and asks
// Supabase otherwise (or when local verification fails).
func newVerifier(cfg config.Config) (auth.Verifier, error) {
	var local *auth.TokenService
	if cfg.SupabaseJWTSecret != "" {
		ts, err := auth.NewTokenService(cfg.SupabaseJWTSecret)
		if err != nil {
			return nil, err
		}
		local = ts
	}
	return auth.NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, local)
}
