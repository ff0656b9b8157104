package model

import "time"

// Role is the access level of a user account.
type Role string

const (
	RoleConductor  Role = "conductor"
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleConductor, RoleAdmin, RoleSupervisor:
		return true
	}
	return false
}

// User represents a row of the `users` table. Cedula is the national ID
// used as the login identifier and is unique across users.
type User struct {
	ID           string    `db:"id"`
	Cedula       string    `db:"cedula"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Email        *string   `db:"email"`
	Phone        *string   `db:"phone"`
	Role         Role      `db:"role"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// bcrypt hash of the secret half of the cookie is stored.
type RefreshToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Expired reports whether the record is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
