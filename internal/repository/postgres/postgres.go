// Package postgres implements repository.NameRepository on managed Postgres (Neon).
//
// The store talks to the database through jmoiron/sqlx on top of the lib/pq driver.
// sqlx is a thin layer over database/sql: the SQL stays hand-written, but results
// scan straight into tagged structs (GetContext, SelectContext) instead of column by
// column.
//
// The schema is owned by versioned migrations in ./migrations, embedded into the
// binary and applied with golang-migrate (Migrate, or the cmd/migrate tool).
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/sakif/pet-namer/internal/repository"
)

// Config holds connection pool settings. Zero values fall back to the defaults below.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Timeout bounds every repository call.
	Timeout time.Duration
}

// Neon closes idle connections on its side after a few minutes; recycling them
// earlier avoids handing a dead connection to a request.
const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 4 * time.Minute
)

// DB is the Postgres-backed name store. Safe for concurrent use.
type DB struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to cfg.DSN and verifies the connection with a ping.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}

	conn, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	conn.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, defaultMaxOpenConns))
	conn.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, defaultMaxIdleConns))
	conn.SetConnMaxLifetime(orDefault(cfg.ConnMaxLifetime, defaultConnMaxLifetime))
	conn.SetConnMaxIdleTime(orDefault(cfg.ConnMaxIdleTime, defaultConnMaxIdleTime))

	d := New(conn, cfg.Timeout)

	if err := d.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return d, nil
}

// New wraps an existing connection. Tests hand it a sqlmock-backed *sqlx.DB.
func New(conn *sqlx.DB, timeout time.Duration) *DB {
	if timeout <= 0 {
		timeout = repository.DefaultTimeout
	}
	return &DB{db: conn, timeout: timeout}
}

func (d *DB) Close() error { return d.db.Close() }

// Ping reports whether the database is reachable (used by /healthz).
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := repository.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
