package user

import "time"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=255"`
	Password  string `validate:"required,maxbytes=72"`
}

// UpdateSelfRequest represents a self-update by the authenticated user.
// Empty strings mean "not supplied". Email is only checked against the current email.
type UpdateSelfRequest struct {
	Current   User
	Email     *string
	FirstName string `validate:"omitempty,max=100"`
	LastName  string `validate:"omitempty,max=100"`
	Password  string `validate:"omitempty,maxbytes=72"`
}

// User is the public view of an account. It never carries the password.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	AccountCreated time.Time
	AccountUpdated time.Time
}
