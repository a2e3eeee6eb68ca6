package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated  = errors.New("authentication failed")
	ErrValidation       = errors.New("Validation Error")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrPersistence      = errors.New("persistence failure")
	ErrUpstream         = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the category and the cause, so errors.Is matches
// apperror.ErrPersistence as well as e.g. context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Unauthenticated covers a missing or malformed bearer token and every
// identity-provider failure. HTTP handlers map this to 401.
func Unauthenticated(reason string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: reason,
		Cause:   cause,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func MethodNotAllowed(method string, allowed ...string) *AppError {
	return &AppError{
		Err:     ErrMethodNotAllowed,
		Message: fmt.Sprintf("Method %s Not Allowed", method),
		Field:   strings.Join(allowed, ", "),
	}
}

// Persistence wraps a store failure (connectivity, timeout, constraint).
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: op,
		Cause:   cause,
	}
}

// Upstream wraps a failure of the text-generation service.
func Upstream(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: op,
		Cause:   cause,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}

// IsAuthentication reports whether err should be answered with 401.
//
// Typed errors decide by category. Untyped errors fall back to the message: anything
// mentioning "authorization" or "token" counts as an authentication failure.
func IsAuthentication(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authorization") || strings.Contains(msg, "token")
}
