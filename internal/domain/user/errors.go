package user

import pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"

var (
	// ErrEmailAlreadyExists is returned when creating a user whose email is taken.
	// Its message is part of the public API.
	ErrEmailAlreadyExists = pkgerrors.NewAlreadyExistsError("user", "Email already exists")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = pkgerrors.ErrBadCredentials

	// ErrNotFound is returned when an update targets a missing user.
	ErrNotFound = pkgerrors.NewNotFoundError("user", "user not found")

	// ErrEmailImmutable is returned when an update tries to change the email.
	ErrEmailImmutable = pkgerrors.NewValidationError("email", "email cannot be changed")

	// ErrNoChanges is returned when an update carries no mutable field.
	ErrNoChanges = pkgerrors.NewValidationError("", "one of first_name, last_name, password is required")
)
