package postgres

import (
	"context"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/model"
	"github.com/sakif/pet-namer/internal/repository"
)

var _ repository.NameRepository = (*DB)(nil)

const (
	listByUserQuery = `SELECT id, name, gender, created_at, user_id
		FROM favourite_names
		WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2`

	// RETURNING hands back the server-assigned id and created_at in the same round trip.
	insertQuery = `INSERT INTO favourite_names (name, gender, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, gender, created_at, user_id`
)

func (d *DB) ListByUser(ctx context.Context, userID string, limit int) ([]model.SavedName, error) {
	ctx, cancel := repository.WithTimeout(ctx, d.timeout)
	defer cancel()

	limit = repository.NormalizeLimit(limit)

	names := make([]model.SavedName, 0, limit)
	if err := d.db.SelectContext(ctx, &names, listByUserQuery, userID, limit); err != nil {
		return nil, apperror.Persistence("postgres: listing names", err)
	}
	if names == nil {
		names = []model.SavedName{}
	}
	return names, nil
}

func (d *DB) Insert(ctx context.Context, userID, name, gender string) (*model.SavedName, error) {
	ctx, cancel := repository.WithTimeout(ctx, d.timeout)
	defer cancel()

	var n model.SavedName
	if err := d.db.GetContext(ctx, &n, insertQuery, name, gender, userID); err != nil {
		return nil, apperror.Persistence("postgres: inserting name", err)
	}
	return &n, nil
}
