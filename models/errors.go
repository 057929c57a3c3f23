package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match with errors.Is; handlers map each kind to a
// single HTTP status.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrThreadFull      = errors.New("thread is full")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")

	ErrUnauthorized  = errors.New("invalid credentials")
	ErrNotActivated  = errors.New("account is not activated")
	ErrTokenExpired  = errors.New("token expired")
	ErrUsernameTaken = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email already exists: %w", ErrConflict)
)

// InvalidArgument builds an error of kind ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
