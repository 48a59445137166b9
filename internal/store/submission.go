package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// SubmissionFilter narrows List and Count. Soft-deleted rows are always excluded.
type SubmissionFilter struct {
	Family *domain.ContentFamily
}

// SubmissionStore persists graded recitation attempts. Submissions are
// never updated; they can only be soft-deleted.
type SubmissionStore interface {
	Create(ctx context.Context, s *domain.Submission) error

	// GetByID returns a live submission or ErrSubmissionNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// List returns a learner's live submissions, newest first.
	List(ctx context.Context, learnerID uuid.UUID, filter SubmissionFilter, page Page) ([]*domain.Submission, error)

	Count(ctx context.Context, learnerID uuid.UUID, filter SubmissionFilter) (int, error)

	// SoftDelete marks a learner's submission deleted. A missing, foreign or
	// already deleted submission returns ErrSubmissionNotFound.
	SoftDelete(ctx context.Context, learnerID, id uuid.UUID, at time.Time) error

	WithTx(tx *sql.Tx) SubmissionStore
}
