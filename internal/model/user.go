// Package model defines the data structures used throughout the application.
package model

// User is an identity verified by the external identity provider (Supabase Auth).
//
// We never store users ourselves. The provider is the service of record; all we keep
// is the ID, which becomes SavedName.UserID. The remaining fields come straight from
// the verified token (or the provider's /auth/v1/user response) and are only used for
// logging and error reports.
//
// WHY NO CreatedAt/UpdatedAt?
// Account lifecycle belongs to the provider. Copying its timestamps here would give us
// a second, stale source of truth.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Audience string `json:"aud,omitempty"`
}
