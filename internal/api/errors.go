package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/domain/srs"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
	"github.com/phrazzld/tahfidz-api/internal/service/review"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps service errors to HTTP status codes. Unknown
// errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	// An unknown collection is a 404 even though it is a range error.
	case errors.Is(err, catalog.ErrRangeNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrUnsupportedFamily),
		errors.Is(err, domain.ErrEmptyRecitation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidReviewStatus),
		errors.Is(err, recitation.ErrInvalidAudio),
		errors.Is(err, srs.ErrInvalidDays),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, recitation.ErrSubmissionNotFound),
		errors.Is(err, review.ErrReviewStateNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, recitation.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, recitation.ErrAnalyzerUnavailable),
		errors.Is(err, recitation.ErrRateLimiterUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes wrapped detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return unexpectedErrorMessage
	}

	var ve *domain.ValidationError
	switch {
	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"

	case errors.Is(err, catalog.ErrRangeNotFound):
		return "Range not found in catalog"
	case errors.Is(err, catalog.ErrRangeOutOfBounds):
		return "Range is outside the collection"
	case errors.Is(err, catalog.ErrRangeInverted):
		return "Range start must not be after its end"
	case errors.Is(err, domain.ErrInvalidRange):
		return "Invalid range"
	case errors.Is(err, domain.ErrUnsupportedFamily):
		return "Unsupported content family"
	case errors.Is(err, domain.ErrEmptyRecitation):
		return "Recitation must include audio or a transcript"
	case errors.Is(err, recitation.ErrInvalidAudio):
		return "Audio must be base64 encoded"
	case errors.Is(err, domain.ErrInvalidReviewStatus):
		return "Invalid review status"
	case errors.Is(err, srs.ErrInvalidDays):
		return "Days must be at least 1"
	case errors.As(err, &ve):
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	case errors.Is(err, recitation.ErrSubmissionNotFound),
		errors.Is(err, store.ErrSubmissionNotFound):
		return "Submission not found"
	case errors.Is(err, review.ErrReviewStateNotFound),
		errors.Is(err, store.ErrReviewStateNotFound):
		return "Review state not found"
	case errors.Is(err, store.ErrCollectionNotFound):
		return "Collection not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, recitation.ErrRateLimited):
		return "Too many submissions, try again later"
	case errors.Is(err, recitation.ErrRateLimiterUnavailable):
		return "Service temporarily unavailable, try again later"
	case errors.Is(err, recitation.ErrAnalyzerUnavailable):
		return "Recitation analysis is unavailable, try again"
	case errors.Is(err, recitation.ErrPersistence):
		return "Failed to save submission"

	default:
		return unexpectedErrorMessage
	}
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field and never the Go struct path.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}
	fe := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required", "required_without":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "must be a UUID"
	case "base64":
		return "must be base64 encoded"
	case "gtefield":
		return "must not be before start"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message of unmapped 500s. A rate-limit rejection sets Retry-After.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" && message == unexpectedErrorMessage {
		message = fallback
	}

	var rl *recitation.RateLimitedError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.RetryAfter.Seconds())))
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// retryAfterSeconds rounds up and never returns less than one second.
func retryAfterSeconds(seconds float64) int {
	return max(1, int(math.Ceil(seconds)))
}
