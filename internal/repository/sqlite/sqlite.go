// Package sqlite implements repository.NameRepository on a local SQLite file.
//
// WHY SQLITE HERE?
// Production runs on managed Postgres (see ../postgres). SQLite gives local development
// and the integration tests the same contract with zero infrastructure:
// - Development: DB_PATH=data/names.db, nothing to install
// - Tests: ":memory:", a fresh database per test
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation of
// the SQLite C code — no C compiler needed, works everywhere Go works.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a driver
	// named "sqlite". After this import, sql.Open("sqlite", ...) knows how to talk
	// to SQLite.
	_ "modernc.org/sqlite"

	"github.com/sakif/pet-namer/internal/repository"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn    *sql.DB
	timeout time.Duration
}

// New opens (creating if needed) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/names.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests, lost on close)
//
// timeout bounds every repository call; zero means repository.DefaultTimeout.
func New(dbPath string, timeout time.Duration) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	// One connection keeps the tests looking at the same data.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode allows concurrent reads while a write is
	// happening, which matters once several requests hit the file at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if timeout <= 0 {
		timeout = repository.DefaultTimeout
	}
	db := &DB{conn: conn, timeout: timeout}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable (used by /healthz).
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := repository.WithTimeout(ctx, db.timeout)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run on
// every start. The Postgres store uses versioned golang-migrate files instead;
// keep the two in step.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favourite_names (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			gender     TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			user_id    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_favourite_names_user_id ON favourite_names(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating favourite_names table: %w", err)
	}
	return nil
}
