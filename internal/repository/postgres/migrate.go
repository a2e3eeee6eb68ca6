package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	// Registers the postgres:// scheme with golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MIGRATION FILES:
// Each change is a pair NNNN_description.up.sql / NNNN_description.down.sql.
// golang-migrate records the applied version in schema_migrations, so Up only runs
// what hasn't run yet. Never edit a file that has shipped; add a new pair instead.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// Source returns the embedded migrations as a golang-migrate source driver.
func Source() (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: loading embedded migrations: %w", err)
	}
	return src, nil
}

// NewMigrator opens a golang-migrate instance for the database at dsn.
// The caller must Close it.
func NewMigrator(dsn string, logger *slog.Logger) (*migrate.Migrate, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: initialising migrator: %w", err)
	}
	if logger != nil {
		m.Log = &migrateLogger{logger: logger}
	}
	return m, nil
}

// Migrate applies every pending migration to the database at dsn on its own
// connection. "no change" is not an error.
func Migrate(dsn string, logger *slog.Logger) error {
	m, err := NewMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: applying migrations: %w", err)
	}
	return nil
}

// migrateLogger adapts slog to golang-migrate's Logger interface.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }
