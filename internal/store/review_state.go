package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// ReviewStateFilter narrows List. Zero values match everything.
type ReviewStateFilter struct {
	Family *domain.ContentFamily
	Status *domain.ReviewStatus
}

// ReviewStateStore persists the per-range review state of learners.
type ReviewStateStore interface {
	// Get returns the state for (learner, key) or ErrReviewStateNotFound.
	Get(ctx context.Context, learnerID uuid.UUID, key domain.RangeKey) (*domain.ReviewState, error)

	// GetForUpdate is Get with a row lock held until the surrounding
	// transaction ends. It must run on a store bound with WithTx.
	GetForUpdate(ctx context.Context, learnerID uuid.UUID, key domain.RangeKey) (*domain.ReviewState, error)

	// Create inserts a new state. A state for the same key returns ErrReviewStateExists.
	Create(ctx context.Context, state *domain.ReviewState) error

	// Update overwrites the scheduling fields of an existing state.
	Update(ctx context.Context, state *domain.ReviewState) error

	// ListDue returns states with next_review_at <= now whose status takes
	// part in review, most overdue first.
	ListDue(
		ctx context.Context,
		learnerID uuid.UUID,
		family *domain.ContentFamily,
		now time.Time,
		limit int,
	) ([]*domain.ReviewState, error)

	// List returns all matching states, most recently updated first.
	List(ctx context.Context, learnerID uuid.UUID, filter ReviewStateFilter) ([]*domain.ReviewState, error)

	// WithTx returns a store instance bound to tx.
	WithTx(tx *sql.Tx) ReviewStateStore
}
