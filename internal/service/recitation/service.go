// Package recitation implements submission of a recited range: range
// resolution, rate limiting, analysis, grading and the transactional
// review-state update.
package recitation

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// RecitationInput is the learner's recitation as received from the client.
type RecitationInput struct {
	// AudioBase64 may be a bare base64 payload or a data URL.
	AudioBase64 string
	MimeType    string
	Transcript  string
}

// SessionContext carries optional context about where the recitation took
// place.
type SessionContext struct {
	// HalaqahID is set when the recitation was made within a study group;
	// such submissions wait for the group's teacher to review them.
	HalaqahID *uuid.UUID
}

// SubmitRequest is one recitation to grade.
type SubmitRequest struct {
	LearnerID uuid.UUID
	Ref       domain.ContentRef
	Input     RecitationInput
	Session   SessionContext
}

// NextRangeHint points the learner at what to memorize next.
type NextRangeHint struct {
	// Ref is the single unit after the graded range. It is nil when the range
	// ended the collection.
	Ref             domain.ContentRef
	EndOfCollection bool
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	Submission  *domain.Submission
	ReviewState *domain.ReviewState
	Range       *domain.ContentRange
	Grade       domain.Grade
	CanAdvance  bool
	// NextRangeHint is nil unless CanAdvance is true.
	NextRangeHint *NextRangeHint
}

// HistoryFilter narrows and pages History.
type HistoryFilter struct {
	Family *domain.ContentFamily
	Limit  int
	Offset int
}

// HistoryPage is one page of a learner's submissions.
type HistoryPage struct {
	Items   []*domain.Submission
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// Service grades recitations and keeps review state current.
type Service interface {
	// Submit grades one recitation and records it. The analyzer is called at
	// most once; a failed analysis leaves no trace in storage.
	//
	// Errors:
	//   - domain.ErrUnsupportedFamily, domain.ErrValidation for bad input
	//   - range errors from the resolver, unchanged
	//   - *RateLimitedError (wraps ErrRateLimited), ErrRateLimiterUnavailable
	//   - ErrAnalyzerUnavailable
	//   - ErrPersistence
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// History lists a learner's live submissions, newest first.
	History(ctx context.Context, learnerID uuid.UUID, filter HistoryFilter) (*HistoryPage, error)

	// Delete soft-deletes one of the learner's submissions. The review state
	// derived from it is left as it is.
	Delete(ctx context.Context, learnerID, submissionID uuid.UUID) error
}
