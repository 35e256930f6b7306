package searchconsole

import (
	"errors"
	"fmt"
)

// ErrAuth marks failures to establish an authenticated session.
var ErrAuth = errors.New("searchconsole: authentication failed")

// AuthError records why a session could not be opened. It is never retried.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("searchconsole: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuth) match any *AuthError.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}
