package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

const submissionColumns = `
	id, learner_id, family, collection_id, range_start, range_end, halaqah_id,
	score, transcription, summary, overall_comment, item_comments, errors,
	suggestions, grade, can_advance, status, created_at, deleted_at`

// PostgresSubmissionStore implements the store.SubmissionStore interface
// using a PostgreSQL database as the storage backend. Analyzer lists are
// stored as JSONB.
type PostgresSubmissionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubmissionStore creates a new PostgreSQL implementation of the SubmissionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSubmissionStore(db store.DBTX, logger *slog.Logger) *PostgresSubmissionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubmissionStore{
		db:     db,
		logger: logger.With(slog.String("component", "submission_store")),
	}
}

// Ensure PostgresSubmissionStore implements store.SubmissionStore interface
var _ store.SubmissionStore = (*PostgresSubmissionStore)(nil)

// WithTx implements store.SubmissionStore.WithTx
func (s *PostgresSubmissionStore) WithTx(tx *sql.Tx) store.SubmissionStore {
	return &PostgresSubmissionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.SubmissionStore.Create
func (s *PostgresSubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		log.Warn("submission validation failed during create",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	itemComments, errs, suggestions, err := encodeAnalysisLists(sub.Analysis)
	if err != nil {
		return store.NewStoreError("submission", "create", "failed to encode analysis", err)
	}

	sub.CreatedAt = normalizeTime(sub.CreatedAt)
	key := sub.Ref.Key()

	var halaqah uuid.NullUUID
	if sub.HalaqahID != nil {
		halaqah = uuid.NullUUID{UUID: *sub.HalaqahID, Valid: true}
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NULL)
	`
	_, err = s.db.ExecContext(ctx, query,
		sub.ID,
		sub.LearnerID,
		key.Family,
		key.CollectionID,
		key.Start,
		key.End,
		halaqah,
		sub.Analysis.Score,
		sub.Analysis.Transcription,
		sub.Analysis.Summary,
		sub.Analysis.OverallComment,
		itemComments,
		errs,
		suggestions,
		sub.Grade,
		sub.CanAdvance,
		sub.Status,
		sub.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create submission",
			slog.String("error", redact.Error(err)),
			slog.String("submission_id", sub.ID.String()),
			slog.String("learner_id", sub.LearnerID.String()))
		return store.NewStoreError("submission", "create", "failed to create submission", MapError(err))
	}

	log.Info("submission created",
		slog.String("submission_id", sub.ID.String()),
		slog.String("learner_id", sub.LearnerID.String()),
		slog.String("range", key.String()),
		slog.String("grade", string(sub.Grade)))
	return nil
}

// GetByID implements store.SubmissionStore.GetByID
func (s *PostgresSubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 AND deleted_at IS NULL`

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("submission not found", slog.String("submission_id", id.String()))
			return nil, store.ErrSubmissionNotFound
		}
		log.Error("failed to get submission",
			slog.String("error", redact.Error(err)),
			slog.String("submission_id", id.String()))
		return nil, store.NewStoreError("submission", "get", "failed to get submission", MapError(err))
	}
	return sub, nil
}

// List implements store.SubmissionStore.List
func (s *PostgresSubmissionStore) List(
	ctx context.Context,
	learnerID uuid.UUID,
	filter store.SubmissionFilter,
	page store.Page,
) ([]*domain.Submission, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if page.Limit <= 0 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE learner_id = $1
			AND deleted_at IS NULL
			AND ($2::text IS NULL OR family = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, learnerID, familyArg(filter.Family), page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to query submissions",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return nil, store.NewStoreError("submission", "list", "failed to query submissions", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", redact.Error(err)))
		}
	}()

	subs := []*domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			log.Error("failed to scan submission row", slog.String("error", redact.Error(err)))
			return nil, store.NewStoreError("submission", "list", "failed to scan submission", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("submission", "list", "failed to iterate submissions", err)
	}

	return subs, nil
}

// Count implements store.SubmissionStore.Count
func (s *PostgresSubmissionStore) Count(
	ctx context.Context,
	learnerID uuid.UUID,
	filter store.SubmissionFilter,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE learner_id = $1
			AND deleted_at IS NULL
			AND ($2::text IS NULL OR family = $2)
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query, learnerID, familyArg(filter.Family)).Scan(&n); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count submissions",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return 0, store.NewStoreError("submission", "count", "failed to count submissions", MapError(err))
	}
	return n, nil
}

// SoftDelete implements store.SubmissionStore.SoftDelete
func (s *PostgresSubmissionStore) SoftDelete(ctx context.Context, learnerID, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE submissions
		SET deleted_at = $3
		WHERE id = $1 AND learner_id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, learnerID, normalizeTime(at))
	if err != nil {
		log.Error("failed to delete submission",
			slog.String("error", redact.Error(err)),
			slog.String("submission_id", id.String()))
		return store.NewStoreError("submission", "delete", "failed to delete submission", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrSubmissionNotFound); err != nil {
		log.Debug("submission not found for delete",
			slog.String("submission_id", id.String()),
			slog.String("learner_id", learnerID.String()))
		return err
	}

	log.Info("submission deleted",
		slog.String("submission_id", id.String()),
		slog.String("learner_id", learnerID.String()))
	return nil
}

func encodeAnalysisLists(a domain.Analysis) (itemComments, errs, suggestions []byte, err error) {
	if itemComments, err = json.Marshal(nonNil(a.ItemComments)); err != nil {
		return nil, nil, nil, err
	}
	if errs, err = json.Marshal(nonNil(a.Errors)); err != nil {
		return nil, nil, nil, err
	}
	if suggestions, err = json.Marshal(nonNil(a.Suggestions)); err != nil {
		return nil, nil, nil, err
	}
	return itemComments, errs, suggestions, nil
}

// nonNil keeps JSONB columns as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var (
		sub          domain.Submission
		key          domain.RangeKey
		family       string
		grade        string
		status       string
		halaqah      uuid.NullUUID
		itemComments []byte
		errs         []byte
		suggestions  []byte
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&sub.ID,
		&sub.LearnerID,
		&family,
		&key.CollectionID,
		&key.Start,
		&key.End,
		&halaqah,
		&sub.Analysis.Score,
		&sub.Analysis.Transcription,
		&sub.Analysis.Summary,
		&sub.Analysis.OverallComment,
		&itemComments,
		&errs,
		&suggestions,
		&grade,
		&sub.CanAdvance,
		&status,
		&sub.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	key.Family = domain.ContentFamily(family)
	if sub.Ref, err = domain.RefFromKey(key); err != nil {
		return nil, fmt.Errorf("stored range %s is invalid: %w", key, err)
	}

	if err := json.Unmarshal(itemComments, &sub.Analysis.ItemComments); err != nil {
		return nil, fmt.Errorf("decode item_comments: %w", err)
	}
	if err := json.Unmarshal(errs, &sub.Analysis.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal(suggestions, &sub.Analysis.Suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	if halaqah.Valid {
		id := halaqah.UUID
		sub.HalaqahID = &id
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		sub.DeletedAt = &t
	}
	sub.Grade = domain.Grade(grade)
	sub.Status = domain.SubmissionStatus(status)
	sub.CreatedAt = sub.CreatedAt.UTC()

	return &sub, nil
}
