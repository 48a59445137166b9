package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus tracks whether a submission awaits a human reviewer.
type SubmissionStatus string

const (
	// SubmissionCompleted is a submission graded by the analyzer alone.
	SubmissionCompleted SubmissionStatus = "completed"
	// SubmissionNeedsReview is a submission made within a halaqah; the
	// group's teacher still has to look at it.
	SubmissionNeedsReview SubmissionStatus = "needs_review"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionCompleted || s == SubmissionNeedsReview
}

// Submission is an immutable record of one graded recitation attempt.
type Submission struct {
	ID         uuid.UUID        `json:"id"`
	LearnerID  uuid.UUID        `json:"learner_id"`
	Ref        ContentRef       `json:"-"`
	HalaqahID  *uuid.UUID       `json:"halaqah_id,omitempty"`
	Analysis   Analysis         `json:"analysis"`
	Grade      Grade            `json:"grade"`
	CanAdvance bool             `json:"can_advance"`
	Status     SubmissionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	DeletedAt  *time.Time       `json:"deleted_at,omitempty"`
}

// NewSubmission creates a validated submission for a graded analysis.
// The status follows from whether the attempt was made within a halaqah.
func NewSubmission(
	learnerID uuid.UUID,
	ref ContentRef,
	halaqahID *uuid.UUID,
	analysis Analysis,
	grade Grade,
	canAdvance bool,
	now time.Time,
) (*Submission, error) {
	status := SubmissionCompleted
	if halaqahID != nil {
		status = SubmissionNeedsReview
	}

	s := &Submission{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		Ref:        ref,
		HalaqahID:  halaqahID,
		Analysis:   analysis,
		Grade:      grade,
		CanAdvance: canAdvance,
		Status:     status,
		CreatedAt:  now.UTC(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the submission invariants.
func (s *Submission) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if s.LearnerID == uuid.Nil {
		return NewValidationError("learner_id", "cannot be empty", ErrInvalidID)
	}
	if s.Ref == nil {
		return NewValidationError("ref", "cannot be empty", nil)
	}
	if !s.Ref.Family().Valid() {
		return NewValidationError("family", "unsupported", ErrUnsupportedFamily)
	}
	if s.Analysis.Score < 0 || s.Analysis.Score > 100 {
		return NewValidationError("score", "must be between 0 and 100", nil)
	}
	if !s.Grade.Valid() {
		return NewValidationError("grade", "unknown grade", nil)
	}
	if !s.Status.Valid() {
		return NewValidationError("status", "unknown status", ErrInvalidSubmissionStatus)
	}
	if s.CreatedAt.IsZero() {
		return NewValidationError("created_at", "cannot be zero", nil)
	}
	return nil
}

// IsDeleted reports whether the submission has been soft-deleted.
func (s *Submission) IsDeleted() bool {
	return s.DeletedAt != nil
}
