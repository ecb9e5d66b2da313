package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail occurs when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrConflict indicates the record moved to a state that no longer
	// permits the mutation.
	ErrConflict = errors.New("conflicting state")
)
