package sqlite

import (
	"context"
	"time"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/model"
	"github.com/sakif/pet-namer/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.NameRepository, the build fails here instead
// of wherever the DB is first passed to the service.
var _ repository.NameRepository = (*DB)(nil)

// ListByUser returns the user's saved names, oldest first.
//
// The WHERE clause is the whole ownership guarantee: a user can only ever see rows
// whose user_id matches the verified token subject.
func (db *DB) ListByUser(ctx context.Context, userID string, limit int) ([]model.SavedName, error) {
	ctx, cancel := repository.WithTimeout(ctx, db.timeout)
	defer cancel()

	limit = repository.NormalizeLimit(limit)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, gender, created_at, user_id
		 FROM favourite_names
		 WHERE user_id = ?
		 ORDER BY id ASC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, apperror.Persistence("sqlite: listing names", err)
	}
	// CRITICAL: always close rows when done, or the connection never returns to the pool.
	defer rows.Close()

	// Non-nil even when empty: the handler encodes it as [] rather than null.
	names := make([]model.SavedName, 0, limit)

	for rows.Next() {
		var n model.SavedName
		if err := rows.Scan(&n.ID, &n.Name, &n.Gender, &n.CreatedAt, &n.UserID); err != nil {
			return nil, apperror.Persistence("sqlite: scanning name row", err)
		}
		names = append(names, n)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("sqlite: iterating names", err)
	}

	return names, nil
}

// Insert stores a name for userID and returns the created row.
//
// SQLite has no DEFAULT now() in the Postgres sense that we can read back cheaply,
// so the timestamp is set here and the id comes from LastInsertId.
func (db *DB) Insert(ctx context.Context, userID, name, gender string) (*model.SavedName, error) {
	ctx, cancel := repository.WithTimeout(ctx, db.timeout)
	defer cancel()

	n := &model.SavedName{
		Name:      name,
		Gender:    gender,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UserID:    userID,
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO favourite_names (name, gender, created_at, user_id)
		 VALUES (?, ?, ?, ?)`,
		n.Name,
		n.Gender,
		n.CreatedAt,
		n.UserID,
	)
	if err != nil {
		return nil, apperror.Persistence("sqlite: inserting name", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperror.Persistence("sqlite: reading inserted id", err)
	}
	n.ID = id

	return n, nil
}
