// Package errors defines the application error taxonomy. Validation failures
// are caught before any store write, persistence failures wrap the store's
// error, and allocation contention is retryable. Permission denial is not an
// error at all; capability checks return false.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and retry policy.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodePersistence  Code = "PERSISTENCE"
	CodeRetryable    Code = "RETRYABLE"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL"
)

// ServiceError is the error type crossing service boundaries.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]any
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for diagnostics.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Validation reports a user-input contract violation. Never retried.
func Validation(format string, args ...any) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

// NotFound reports a missing record.
func NotFound(resource, id string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", resource, id), HTTPStatus: http.StatusNotFound}
}

// Conflict reports a lost optimistic-concurrency race.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Persistence wraps a non-contention store failure. In-memory state must be
// preserved so the caller can retry manually.
func Persistence(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodePersistence, Message: message, HTTPStatus: http.StatusBadGateway, cause: cause}
}

// Retryable reports exhausted automatic retries on a contended resource.
func Retryable(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeRetryable, Message: message, HTTPStatus: http.StatusConflict, cause: cause}
}

// Unauthorized reports a missing or invalid principal.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden reports a capability failure surfaced at the transport boundary.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}

func IsValidation(err error) bool { return Is(err, CodeValidation) }
func IsNotFound(err error) bool   { return Is(err, CodeNotFound) }
func IsConflict(err error) bool   { return Is(err, CodeConflict) }
func IsRetryable(err error) bool  { return Is(err, CodeRetryable) }
