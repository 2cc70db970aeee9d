// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound indicates a message set or stored result is missing.
	ErrNotFound = errors.New("not found")
)

// Inference call errors, classified per failure mode.
var (
	// ErrAuth indicates the inference service rejected the credentials.
	// Fatal: never retried, surfaced as a configuration problem.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates the inference service throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a network failure, timeout or 5xx response.
	ErrTransient = errors.New("transient inference failure")

	// ErrMalformedResponse indicates a response was received but is not
	// valid structured output. Retried once per batch, then fatal.
	ErrMalformedResponse = errors.New("malformed inference response")

	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Event channel errors.
var (
	// ErrInvalidEvent indicates an event envelope missing mandatory fields.
	ErrInvalidEvent = errors.New("invalid event payload")
)

// IsRetryable reports whether the error may be retried with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// BatchError marks a whole analysis run as failed because one batch
// exhausted its retry budget. Batch is 1-based.
type BatchError struct {
	Batch int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d/%d failed: %v", e.Batch, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// NewBatchError wraps err with the failed batch position.
func NewBatchError(batch, total int, err error) *BatchError {
	return &BatchError{Batch: batch, Total: total, Err: err}
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
