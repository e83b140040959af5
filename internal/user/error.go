package user

import "errors"

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingFields      = errors.New("missing details")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
