package user

import "context"

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	UpdateSelf(ctx context.Context, in UpdateSelfRequest) error
}
