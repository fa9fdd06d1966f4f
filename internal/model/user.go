// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultRole is assigned to every account at registration. There is no
// admin surface yet, but the column exists so one can be added without a
// migration of existing rows.
const DefaultRole = "user"

// User represents a registered account.
//
// PasswordHash holds a bcrypt hash and is empty for accounts provisioned
// through GitHub OAuth (they have no password to verify). GitHubID is zero
// for password accounts; when set it is unique, so one GitHub account maps
// to exactly one user.
//
// The `json:"-"` tag keeps the hash out of every API response.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Role         string    `json:"role"      db:"role"`
	GitHubID     int64     `json:"-"         db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
