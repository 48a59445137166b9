package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus is the lifecycle stage of a learner's hold on a range.
type ReviewStatus string

const (
	StatusMemorizing ReviewStatus = "memorizing"
	StatusReviewing  ReviewStatus = "reviewing"
	StatusMastered   ReviewStatus = "mastered"
)

// ParseReviewStatus converts s to a ReviewStatus.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	st := ReviewStatus(s)
	if !st.Valid() {
		return "", ErrInvalidReviewStatus
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusMemorizing, StatusReviewing, StatusMastered:
		return true
	}
	return false
}

// Due reports whether a state in this status takes part in spaced review.
// Ranges still being memorized are excluded.
func (s ReviewStatus) Due() bool {
	return s == StatusReviewing || s == StatusMastered
}

// MinEaseFactor is the floor for the ease factor.
const MinEaseFactor = 1.3

// ReviewState is the spaced-repetition state of one learner for one range.
// There is at most one per (learner, range key).
type ReviewState struct {
	ID             uuid.UUID    `json:"id"`
	LearnerID      uuid.UUID    `json:"learner_id"`
	Ref            ContentRef   `json:"-"`
	Status         ReviewStatus `json:"status"`
	LastScore      float64      `json:"last_score"`
	LastReviewedAt time.Time    `json:"last_reviewed_at"`
	NextReviewAt   time.Time    `json:"next_review_at"`
	EaseFactor     float64      `json:"ease_factor"`
	IntervalDays   int          `json:"interval_days"`
	Repetitions    int          `json:"repetitions"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Key returns the range identity of the state.
func (s *ReviewState) Key() RangeKey {
	return s.Ref.Key()
}

// Validate checks the scheduling invariants.
func (s *ReviewState) Validate() error {
	if s.LearnerID == uuid.Nil {
		return NewValidationError("learner_id", "cannot be empty", ErrInvalidID)
	}
	if s.Ref == nil {
		return NewValidationError("ref", "cannot be empty", nil)
	}
	if !s.Status.Valid() {
		return NewValidationError("status", "unknown status", ErrInvalidReviewStatus)
	}
	if s.EaseFactor < MinEaseFactor {
		return NewValidationError("ease_factor", "must be at least 1.3", nil)
	}
	if s.IntervalDays < 1 {
		return NewValidationError("interval_days", "must be at least 1", nil)
	}
	if s.Repetitions < 0 {
		return NewValidationError("repetitions", "cannot be negative", nil)
	}
	if s.LastScore < 0 || s.LastScore > 100 {
		return NewValidationError("last_score", "must be between 0 and 100", nil)
	}
	return nil
}

// IsDue reports whether the state is eligible for review at now.
func (s *ReviewState) IsDue(now time.Time) bool {
	return s.Status.Due() && !s.NextReviewAt.After(now)
}
