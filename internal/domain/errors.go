package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnsupportedFamily is returned for a content family outside quran,
	// hadith and verse_collection.
	ErrUnsupportedFamily = errors.New("unsupported content family")

	// ErrInvalidRange is the parent of all range resolution failures.
	ErrInvalidRange = errors.New("invalid range")

	// ErrEmptyRecitation is returned when a submission carries neither audio
	// nor a transcript.
	ErrEmptyRecitation = errors.New("recitation must include audio or a transcript")

	// ErrInvalidReviewStatus is returned when a review status is not one of the known values.
	ErrInvalidReviewStatus = errors.New("invalid review status")

	// ErrInvalidSubmissionStatus is returned when a submission status is not valid.
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Unwrap returns the specific cause if set, otherwise ErrValidation.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValidation
}

// Is lets errors.Is(err, ErrValidation) match every ValidationError,
// including ones wrapping a more specific cause.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
