// Package errors defines the structured error type shared by services,
// middleware and the HTTP boundary. Every domain failure is recoverable and
// carries an HTTP status; only infrastructure failures map to 5xx.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
)

// ServiceError is the structured error returned across service boundaries.
type ServiceError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for diagnostics and returns e.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(code, message string, status int, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, cause: cause}
}

// PermissionDenied signals that the actor's role does not allow the action.
func PermissionDenied(message string) *ServiceError {
	return newError(CodePermissionDenied, message, http.StatusForbidden, nil)
}

// Validation signals rejected input. The store is left untouched.
func Validation(format string, args ...any) *ServiceError {
	return newError(CodeValidation, fmt.Sprintf(format, args...), http.StatusUnprocessableEntity, nil)
}

// NotFound signals a missing entity of the given type.
func NotFound(entity string, id any) *ServiceError {
	return newError(CodeNotFound, fmt.Sprintf("%s %v not found", entity, id), http.StatusNotFound, nil)
}

// InvalidTransition names the current and requested status of a rejected
// lifecycle change.
func InvalidTransition(from, to string) *ServiceError {
	return newError(CodeInvalidTransition,
		fmt.Sprintf("cannot transition from %s to %s", from, to),
		http.StatusConflict, nil).
		WithDetails("from", from).
		WithDetails("to", to)
}

// Conflict signals a uniqueness violation (tracking id, email, dni, username).
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, message, http.StatusConflict, nil)
}

// Unauthorized signals missing or unusable credentials.
func Unauthorized(message string) *ServiceError {
	return newError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// InvalidToken signals a JWT that failed validation.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, "invalid or expired token", http.StatusUnauthorized, cause)
}

// RateLimitExceeded signals that the caller exhausted its request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests, nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an infrastructure failure (lost connection, broken tx). It is
// the only non-recoverable class in the taxonomy.
func Internal(cause error) *ServiceError {
	return newError(CodeInternal, "internal error", http.StatusInternalServerError, cause)
}

// GetServiceError maps any error to a ServiceError for the HTTP boundary.
// Unknown errors are treated as internal.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err)
}

// IsCode reports whether err is a ServiceError with the given code.
func IsCode(err error, code string) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}
