package postgres

import (
	"context"
	"database/sql"
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

const reviewStateColumns = `
	id, learner_id, family, collection_id, range_start, range_end, status,
	last_score, last_reviewed_at, next_review_at, ease_factor, interval_days,
	repetitions, created_at, updated_at`

const reviewStateKeyPredicate = `
	learner_id = $1 AND family = $2 AND collection_id = $3
	AND range_start = $4 AND range_end = $5`

// PostgresReviewStateStore implements the store.ReviewStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStateStore creates a new PostgreSQL implementation of the ReviewStateStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStateStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_state_store")),
	}
}

// Ensure PostgresReviewStateStore implements store.ReviewStateStore interface
var _ store.ReviewStateStore = (*PostgresReviewStateStore)(nil)

// WithTx implements store.ReviewStateStore.WithTx
func (s *PostgresReviewStateStore) WithTx(tx *sql.Tx) store.ReviewStateStore {
	return &PostgresReviewStateStore{
		db:     tx,
		logger: s.logger,
	}
}

// Get implements store.ReviewStateStore.Get
func (s *PostgresReviewStateStore) Get(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.RangeKey,
) (*domain.ReviewState, error) {
	return s.get(ctx, learnerID, key, false)
}

// GetForUpdate implements store.ReviewStateStore.GetForUpdate
// The row stays locked until the surrounding transaction commits or rolls back.
func (s *PostgresReviewStateStore) GetForUpdate(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.RangeKey,
) (*domain.ReviewState, error) {
	return s.get(ctx, learnerID, key, true)
}

func (s *PostgresReviewStateStore) get(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.RangeKey,
	forUpdate bool,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + reviewStateColumns + ` FROM review_states WHERE ` + reviewStateKeyPredicate
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := s.db.QueryRowContext(ctx, query, learnerID, key.Family, key.CollectionID, key.Start, key.End)
	state, err := scanReviewState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("review state not found",
				slog.String("learner_id", learnerID.String()),
				slog.String("range", key.String()))
			return nil, store.ErrReviewStateNotFound
		}
		log.Error("failed to get review state",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("range", key.String()))
		return nil, store.NewStoreError("review_state", "get", "failed to get review state", MapError(err))
	}

	return state, nil
}

// Create implements store.ReviewStateStore.Create
// Timestamps on state are normalized to what the database stores.
func (s *PostgresReviewStateStore) Create(ctx context.Context, state *domain.ReviewState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during create",
			slog.String("error", err.Error()),
			slog.String("review_state_id", state.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	normalizeReviewStateTimes(state)
	key := state.Key()

	query := `
		INSERT INTO review_states (` + reviewStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.LearnerID,
		key.Family,
		key.CollectionID,
		key.Start,
		key.End,
		state.Status,
		state.LastScore,
		state.LastReviewedAt,
		state.NextReviewAt,
		state.EaseFactor,
		state.IntervalDays,
		state.Repetitions,
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrReviewStateExists) {
			log.Debug("review state already exists",
				slog.String("learner_id", state.LearnerID.String()),
				slog.String("range", key.String()))
			return mapped
		}
		log.Error("failed to create review state",
			slog.String("error", redact.Error(err)),
			slog.String("review_state_id", state.ID.String()))
		return store.NewStoreError("review_state", "create", "failed to create review state", mapped)
	}

	log.Debug("review state created",
		slog.String("review_state_id", state.ID.String()),
		slog.String("range", key.String()),
		slog.String("status", string(state.Status)))
	return nil
}

// Update implements store.ReviewStateStore.Update
// Only the scheduling fields change; the identity and range are fixed.
func (s *PostgresReviewStateStore) Update(ctx context.Context, state *domain.ReviewState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("review_state_id", state.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	normalizeReviewStateTimes(state)

	query := `
		UPDATE review_states
		SET status = $2, last_score = $3, last_reviewed_at = $4, next_review_at = $5,
			ease_factor = $6, interval_days = $7, repetitions = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.Status,
		state.LastScore,
		state.LastReviewedAt,
		state.NextReviewAt,
		state.EaseFactor,
		state.IntervalDays,
		state.Repetitions,
		state.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update review state",
			slog.String("error", redact.Error(err)),
			slog.String("review_state_id", state.ID.String()))
		return store.NewStoreError("review_state", "update", "failed to update review state", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrReviewStateNotFound); err != nil {
		log.Debug("review state not found for update",
			slog.String("review_state_id", state.ID.String()))
		return err
	}

	log.Debug("review state updated",
		slog.String("review_state_id", state.ID.String()),
		slog.Int("interval_days", state.IntervalDays),
		slog.Int("repetitions", state.Repetitions))
	return nil
}

// ListDue implements store.ReviewStateStore.ListDue
func (s *PostgresReviewStateStore) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	family *domain.ContentFamily,
	now time.Time,
	limit int,
) ([]*domain.ReviewState, error) {
	query := `
		SELECT ` + reviewStateColumns + `
		FROM review_states
		WHERE learner_id = $1
			AND next_review_at <= $2
			AND status IN ('reviewing', 'mastered')
			AND ($3::text IS NULL OR family = $3)
		ORDER BY next_review_at ASC, id ASC
		LIMIT $4
	`
	return s.list(ctx, "list_due", query, learnerID, now.UTC(), familyArg(family), limit)
}

// List implements store.ReviewStateStore.List
func (s *PostgresReviewStateStore) List(
	ctx context.Context,
	learnerID uuid.UUID,
	filter store.ReviewStateFilter,
) ([]*domain.ReviewState, error) {
	var status sql.NullString
	if filter.Status != nil {
		status = sql.NullString{String: string(*filter.Status), Valid: true}
	}

	query := `
		SELECT ` + reviewStateColumns + `
		FROM review_states
		WHERE learner_id = $1
			AND ($2::text IS NULL OR family = $2)
			AND ($3::text IS NULL OR status = $3)
		ORDER BY updated_at DESC, id ASC
	`
	return s.list(ctx, "list", query, learnerID, familyArg(filter.Family), status)
}

func (s *PostgresReviewStateStore) list(
	ctx context.Context,
	operation string,
	query string,
	args ...any,
) ([]*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query review states",
			slog.String("operation", operation),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("review_state", operation, "failed to query review states", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", redact.Error(err)))
		}
	}()

	states := []*domain.ReviewState{}
	for rows.Next() {
		state, err := scanReviewState(rows)
		if err != nil {
			log.Error("failed to scan review state row",
				slog.String("error", redact.Error(err)))
			return nil, store.NewStoreError("review_state", operation, "failed to scan review state", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("review_state", operation, "failed to iterate review states", err)
	}

	return states, nil
}

func scanReviewState(row rowScanner) (*domain.ReviewState, error) {
	var (
		state  domain.ReviewState
		key    domain.RangeKey
		family string
		status string
	)

	err := row.Scan(
		&state.ID,
		&state.LearnerID,
		&family,
		&key.CollectionID,
		&key.Start,
		&key.End,
		&status,
		&state.LastScore,
		&state.LastReviewedAt,
		&state.NextReviewAt,
		&state.EaseFactor,
		&state.IntervalDays,
		&state.Repetitions,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	key.Family = domain.ContentFamily(family)
	ref, err := domain.RefFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("stored range %s is invalid: %w", key, err)
	}

	state.Ref = ref
	state.Status = domain.ReviewStatus(status)
	state.LastReviewedAt = state.LastReviewedAt.UTC()
	state.NextReviewAt = state.NextReviewAt.UTC()
	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()

	return &state, nil
}

func normalizeReviewStateTimes(state *domain.ReviewState) {
	state.LastReviewedAt = normalizeTime(state.LastReviewedAt)
	state.NextReviewAt = normalizeTime(state.NextReviewAt)
	state.CreatedAt = normalizeTime(state.CreatedAt)
	state.UpdatedAt = normalizeTime(state.UpdatedAt)
}
