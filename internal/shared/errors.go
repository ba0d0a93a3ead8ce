package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired indicates the request carried no credential.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrInvalidCredentials indicates a credential that did not resolve to an
	// enabled actor, regardless of which step failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied indicates the actor is known but not permitted.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput indicates a malformed or rejected payload.
	ErrInvalidInput = errors.New("invalid input")
)

// Invalidf wraps ErrInvalidInput with a caller-facing message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
