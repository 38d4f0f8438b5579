package domain

import (
	"errors"
	"fmt"
)

// ErrNotSupported signals a capability the configured client cannot perform,
// e.g. running the OAuth2 flow without client credentials or authenticating
// against the sandbox.
var ErrNotSupported = errors.New("operation not supported by this client")

// AuthError reports a missing, invalid or rejected credential.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError reports malformed caller input. It is always raised before
// any request leaves the process.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError reports a transport or remote-API failure. Retryable is set for
// failures a caller may reasonably retry (5xx, rate limiting).
type RemoteError struct {
	StatusCode int
	Body       string
	Retryable  bool
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote: %v", e.Err)
	}
	return fmt.Sprintf("remote: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return e.Err }
