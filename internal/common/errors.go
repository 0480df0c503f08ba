// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
	// ErrSessionNotFound indicates an unknown upload or batch session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMissingConfig indicates required configuration was not provided.
	ErrMissingConfig = errors.New("missing configuration")
)

// UpstreamError represents a failure of the completion API: a transient
// error that survived all retries, a fatal status, or a well-formed response
// with no generated content. Status is 0 when the failure happened before an
// HTTP status was available (e.g. a timeout).
type UpstreamError struct {
	Message string
	Status  int
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("completion API error: %s", e.Message)
}

// MappingError marks a batch as failed because a single account's upstream
// call could not be completed.
type MappingError struct {
	Err         error
	AccountCode string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping account %s: %v", e.AccountCode, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// RetryableError wraps an error with retry-specific metadata. Retryability
// is decided once, where the error is produced, rather than sniffed from
// message text on every attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an error should trigger another attempt.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}
