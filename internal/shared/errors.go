package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInactiveAccount indicates the account exists but is not Active.
	ErrInactiveAccount = errors.New("user account is not active")
)
