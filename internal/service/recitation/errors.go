package recitation

import (
	"errors"
	"fmt"
	"time"
)

// Common error types for the recitation service
var (
	// ErrRateLimited indicates the learner exhausted the analyzer quota.
	ErrRateLimited = errors.New("too many recitation submissions, try again later")

	// ErrRateLimiterUnavailable indicates the limiter could not decide. The
	// request is rejected rather than let through unmetered.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")

	// ErrAnalyzerUnavailable indicates the analyzer failed. Nothing was stored.
	ErrAnalyzerUnavailable = errors.New("recitation analyzer unavailable, try again")

	// ErrPersistence indicates the graded submission could not be stored.
	ErrPersistence = errors.New("failed to store submission")

	// ErrSubmissionNotFound indicates the submission does not exist, belongs
	// to another learner, or was already deleted.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrInvalidAudio indicates the audio payload is not valid base64.
	ErrInvalidAudio = errors.New("audio must be base64 encoded")
)

// RateLimitedError is returned from Submit when the limiter rejects the
// request.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface for RateLimitedError.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

// Unwrap returns ErrRateLimited.
func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// ServiceError wraps errors from the recitation service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "history")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
