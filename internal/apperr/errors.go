// Package apperr defines the typed error categories shared across the
// application. Backends classify their own failures into these kinds at the
// point of origin so that callers never need to inspect error text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Wrap these with context; match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnavailableError reports that a shared backend refused or dropped its
// connection. The original error is preserved for diagnostics.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// Cause returns the underlying backend error.
func (e *UnavailableError) Cause() error { return e.Err }

// Unavailable wraps err as a backend-unavailable failure for the named
// backend.
func Unavailable(backend string, err error) error {
	return &UnavailableError{Backend: backend, Err: err}
}

// Unauthorized creates an authorization failure with a user-safe message.
func Unauthorized(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrUnauthorized)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is a backend-unavailable failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// HTTPStatus maps an error to the status code the HTTP layer should answer
// with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
