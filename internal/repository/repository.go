// Package repository defines the storage contract for saved names.
//
// Two implementations live in sub-packages:
//   - postgres: the managed database used in production (Neon)
//   - sqlite: a single-file store for local development and integration tests
//
// Both satisfy NameRepository, so the service layer never knows which one it talks to.
package repository

import (
	"context"
	"time"

	"github.com/sakif/pet-namer/internal/model"
)

// DefaultListLimit caps how many names a single list call returns.
const DefaultListLimit = 50

// DefaultTimeout bounds a store call when the caller didn't configure one.
const DefaultTimeout = 5 * time.Second

// NameRepository stores favourite names per user. There is no update or delete.
//
// Every failure is returned as an apperror.ErrPersistence, including timeouts.
type NameRepository interface {
	// ListByUser returns up to limit rows owned by userID in ascending id order.
	// A limit <= 0 means DefaultListLimit. Zero rows yields an empty, non-nil slice.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.SavedName, error)

	// Insert stores a row and returns it with the server-assigned id and createdAt.
	Insert(ctx context.Context, userID, name, gender string) (*model.SavedName, error)
}

// NormalizeLimit applies the DefaultListLimit rule.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// WithTimeout applies timeout to ctx unless ctx already has an earlier deadline.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
