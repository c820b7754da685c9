package user

import "time"

// User represents a user account.
type User struct {
	ID             string    // ID is assigned by the repository on create
	FirstName      string
	LastName       string
	Email          string    // Email is unique across all users and never changes
	PasswordHash   string    // PasswordHash is a bcrypt hash, never the plain password
	AccountCreated time.Time // AccountCreated is set once on create
	AccountUpdated time.Time // AccountUpdated is refreshed by every successful update
}

// Changes lists the mutable fields of a user. Nil fields are left untouched.
type Changes struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
}

