// Command migrate manages the Postgres schema using the migrations embedded in
// internal/repository/postgres.
//
//	migrate up          apply all pending migrations
//	migrate down [N]    roll back N migrations (default 1)
//	migrate version     print the current version
//	migrate force V     set the version without running anything (clears "dirty")
//
// The server can also apply pending migrations at startup with AUTO_MIGRATE=true.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/caarlos0/env"
	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/sakif/pet-namer/internal/repository/postgres"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	NeonURL     string `env:"NEON_DB_URL"`
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// A missing .env is fine; real environment variables are never overwritten.
	_ = godotenv.Load()

	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		fatalf(logger, "reading environment: %v", err)
	}
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = cfg.NeonURL
	}
	if dsn == "" {
		fatalf(logger, "DATABASE_URL (or NEON_DB_URL) environment variable is required")
	}

	m, err := postgres.NewMigrator(dsn, logger)
	if err != nil {
		fatalf(logger, "migration init failed: %v", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatalf(logger, "up failed: %v", err)
		}
		logger.Info("migrations: up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				fatalf(logger, "down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatalf(logger, "down failed: %v", err)
		}
		logger.Info("migrations: down completed", slog.Int("steps", steps))

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return
		}
		if err != nil {
			fatalf(logger, "version failed: %v", err)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			fatalf(logger, "force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fatalf(logger, "force: invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			fatalf(logger, "force failed: %v", err)
		}
		logger.Info("migrations: forced", slog.Int("version", v))

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (bypass dirty state)

Environment:
  DATABASE_URL   Postgres DSN (falls back to NEON_DB_URL)`)
}

func fatalf(logger *slog.Logger, format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
