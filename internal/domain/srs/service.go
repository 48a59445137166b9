package srs

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// Common errors
var (
	ErrNilState      = errors.New("review state cannot be nil")
	ErrInvalidScore  = errors.New("score must be between 0 and 100")
	ErrInvalidInput  = errors.New("review input requires a learner and a range")
	ErrStateMismatch = errors.New("prior state belongs to a different learner or range")
	ErrInvalidDays   = errors.New("postpone days must be at least 1")
)

// ReviewInput carries the outcome of one graded recitation.
type ReviewInput struct {
	LearnerID uuid.UUID
	Ref       domain.ContentRef
	Score     float64
}

// Service defines the interface for SRS algorithm operations
type Service interface {
	// Update computes the review state that follows a graded recitation.
	// prior is nil for the first recitation of a range.
	Update(prior *domain.ReviewState, in ReviewInput, now time.Time) (*domain.ReviewState, error)

	// Postpone pushes the next review time forward by a specified number of days
	Postpone(state *domain.ReviewState, days int, now time.Time) (*domain.ReviewState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// Update implements the Service interface.
func (s *defaultService) Update(
	prior *domain.ReviewState,
	in ReviewInput,
	now time.Time,
) (*domain.ReviewState, error) {
	if in.LearnerID == uuid.Nil || in.Ref == nil {
		return nil, ErrInvalidInput
	}
	if math.IsNaN(in.Score) || in.Score < 0 || in.Score > 100 {
		return nil, ErrInvalidScore
	}
	if prior != nil && (prior.LearnerID != in.LearnerID || prior.Key() != in.Ref.Key()) {
		return nil, ErrStateMismatch
	}

	return calculateNextState(prior, in, now, s.params), nil
}

// Postpone implements the Service interface.
func (s *defaultService) Postpone(
	state *domain.ReviewState,
	days int,
	now time.Time,
) (*domain.ReviewState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := *state
	next.NextReviewAt = state.NextReviewAt.AddDate(0, 0, days)
	next.UpdatedAt = now.UTC()

	return &next, nil
}
