// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// SavedName is one pet name a user chose to keep.
//
// The `json:"..."` tags shape the API response; the `db:"..."` tags let sqlx map
// result columns onto the struct by name instead of by position.
//
// OWNERSHIP:
// UserID is the identity provider's user id (a UUID issued by Supabase). It is set once
// at insert time and never changes; there is no update operation.
//
// For example, a saved row marshals to:
//
//	{"id":7,"name":"Rex","gender":"Male","createdAt":"2026-10-18T09:00:00Z","userId":"6f1c..."}
type SavedName struct {
	ID        int64     `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Gender    string    `json:"gender"    db:"gender"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UserID    string    `json:"userId"    db:"user_id"`
}
