package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode returns the HTTP status of err if it is a backend Error, else 0.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the session (HTTP 401).
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports whether the backend denied access (HTTP 403).
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports whether the backend answered HTTP 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Message returns the backend's own error message when there is one,
// otherwise fallback.
func Message(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// ErrInvalidCredentials is returned by Login when the backend refuses the
// email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")
