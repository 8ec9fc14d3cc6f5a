package types

import "time"

// User represents an account in the system.
// The email address is the unique login key.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address, normalized at creation time
	// (the domain portion is lowercased).
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsActive indicates whether the account may authenticate.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsStaff indicates whether the user has staff privileges.
	IsStaff bool `json:"is_staff" db:"is_staff"`

	// IsSuperuser indicates whether the user has every permission.
	IsSuperuser bool `json:"is_superuser" db:"is_superuser"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Token is the opaque bearer credential issued to a user.
// Each user has at most one token; it is reused across logins
// rather than rotated.
type Token struct {
	// Key is the opaque value presented in the Authorization header.
	Key string `json:"token" db:"key"`

	// UserID is the identifier of the user the token belongs to.
	UserID int `json:"-" db:"user_id"`

	// CreatedAt is the timestamp at which the token was first issued.
	CreatedAt time.Time `json:"-" db:"created_at"`
}
