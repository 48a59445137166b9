package analysis

import "errors"

// Common errors returned by analyzers
var (
	// ErrAnalysisFailed is returned when the model call fails for any general reason
	ErrAnalysisFailed = errors.New("failed to analyze recitation")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the analyzer configuration is invalid
	ErrInvalidConfig = errors.New("invalid analyzer configuration")

	// ErrInvalidRequest is returned when a request has no range or no recitation.
	ErrInvalidRequest = errors.New("invalid analysis request")
)
