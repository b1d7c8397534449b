// Package apperror defines the error kinds shared by every layer.
//
// Repositories return these, services wrap them with %w, and handlers map
// them to HTTP status codes. Callers check the kind with errors.Is:
//
//	if errors.Is(err, apperror.ErrDuplicate) { ... }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("Validation Error")
	ErrDuplicate      = errors.New("duplicate")
	ErrForbidden      = errors.New("forbidden")
	ErrAuthentication = errors.New("authentication failed")
)

type AppError struct {
	Err     error  // sentinel kind
	Cause   error  // Optional: underlying failure (storage, OAuth, ...)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Details carries diagnostic context for operators. Never sent to clients.
	Details map[string]string
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause, so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a uniqueness violation: the row identified by key already exists.
func Duplicate(resource, key string, cause error) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Cause:   cause,
		Message: fmt.Sprintf("%s already exists for %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// AuthenticationFailed classifies a social-login failure at the given stage
// ("pre login", "save user", ...). details is attached for logging.
func AuthenticationFailed(stage string, cause error, details map[string]string) *AppError {
	return &AppError{
		Err:     ErrAuthentication,
		Cause:   cause,
		Message: fmt.Sprintf("authentication failed: %s", stage),
		Details: details,
	}
}
