// Package review serves a learner's spaced-review queue and progress
// overview.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/domain/srs"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDueLimit = 10
	MaxDueLimit     = 50

	// enrichConcurrency bounds parallel catalog lookups per request.
	enrichConcurrency = 4
)

var (
	// ErrReviewStateNotFound indicates the learner has no state for the range.
	ErrReviewStateNotFound = errors.New("review state not found")
)

// CollectionLookup fetches display metadata for a collection.
type CollectionLookup interface {
	GetCollection(ctx context.Context, family domain.ContentFamily, id string) (*domain.Collection, error)
}

// DueItem is a review state ready for review, with the collection title
// for display. Title is empty when the lookup failed.
type DueItem struct {
	State *domain.ReviewState
	Title string
}

// ProgressFilter narrows Progress.
type ProgressFilter struct {
	Family *domain.ContentFamily
	Status *domain.ReviewStatus
}

// FamilyStats counts a learner's ranges in one family.
type FamilyStats struct {
	Total      int `json:"total"`
	Memorizing int `json:"memorizing"`
	Reviewing  int `json:"reviewing"`
	Mastered   int `json:"mastered"`
	// TotalUnits sums the length of every range.
	TotalUnits int `json:"total_units"`
}

// Progress is a learner's review states with per-family counts.
type Progress struct {
	States []*domain.ReviewState
	Stats  map[domain.ContentFamily]FamilyStats
}

// Config tunes the service. Zero values select the package defaults.
type Config struct {
	DueLimitDefault int
	DueLimitMax     int
}

// Service reads the review queue.
type Service interface {
	// DueItems returns up to limit states due now, most overdue first.
	// A non-positive limit selects the default; larger limits are capped.
	DueItems(ctx context.Context, learnerID uuid.UUID, family *domain.ContentFamily, limit int) ([]DueItem, error)

	// Progress returns every matching state, most recently updated first.
	Progress(ctx context.Context, learnerID uuid.UUID, filter ProgressFilter) (*Progress, error)

	// Postpone moves the next review of a range days into the future.
	Postpone(ctx context.Context, learnerID uuid.UUID, key domain.RangeKey, days int) (*domain.ReviewState, error)
}

type service struct {
	states       store.ReviewStateStore
	catalog      CollectionLookup
	scheduler    srs.Service
	txRunner     store.TxRunner
	defaultLimit int
	maxLimit     int
	now          func() time.Time
	logger       *slog.Logger
}

var _ Service = (*service)(nil)

// NewService creates a review Service.
func NewService(
	states store.ReviewStateStore,
	catalog CollectionLookup,
	scheduler srs.Service,
	txRunner store.TxRunner,
	cfg Config,
	logger *slog.Logger,
) Service {
	if states == nil {
		panic("states cannot be nil")
	}
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if txRunner == nil {
		panic("txRunner cannot be nil")
	}
	if scheduler == nil {
		scheduler = srs.NewDefaultService()
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxLimit := cfg.DueLimitMax
	if maxLimit <= 0 {
		maxLimit = MaxDueLimit
	}
	defaultLimit := cfg.DueLimitDefault
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(DefaultDueLimit, maxLimit)
	}

	return &service{
		states:       states,
		catalog:      catalog,
		scheduler:    scheduler,
		txRunner:     txRunner,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "review_service")),
	}
}

// DueItems implements Service.DueItems.
func (s *service) DueItems(
	ctx context.Context,
	learnerID uuid.UUID,
	family *domain.ContentFamily,
	limit int,
) ([]DueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if family != nil && !family.Valid() {
		return nil, domain.ErrUnsupportedFamily
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	states, err := s.states.ListDue(ctx, learnerID, family, s.now().UTC(), limit)
	if err != nil {
		log.Error("failed to list due review states",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to list due items: %w", err)
	}

	items := make([]DueItem, len(states))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i, st := range states {
		items[i].State = st
		g.Go(func() error {
			key := st.Key()
			coll, err := s.catalog.GetCollection(gctx, key.Family, key.CollectionID)
			if err != nil {
				log.Warn("failed to load collection for due item",
					slog.String("error", redact.Error(err)),
					slog.String("range", key.String()))
				return nil
			}
			items[i].Title = coll.Title
			return nil
		})
	}
	// Workers never return errors; enrichment degrades per item.
	_ = g.Wait()

	log.Debug("due items listed",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(items)))
	return items, nil
}

// Progress implements Service.Progress.
func (s *service) Progress(ctx context.Context, learnerID uuid.UUID, filter ProgressFilter) (*Progress, error) {
	if filter.Family != nil && !filter.Family.Valid() {
		return nil, domain.ErrUnsupportedFamily
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.ErrInvalidReviewStatus
	}

	states, err := s.states.List(ctx, learnerID, store.ReviewStateFilter{
		Family: filter.Family,
		Status: filter.Status,
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list review states",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	return &Progress{States: states, Stats: Summarize(states)}, nil
}

// Summarize counts states per family and status.
func Summarize(states []*domain.ReviewState) map[domain.ContentFamily]FamilyStats {
	stats := make(map[domain.ContentFamily]FamilyStats)
	for _, st := range states {
		key := st.Key()
		fs := stats[key.Family]
		fs.Total++
		fs.TotalUnits += key.Len()
		switch st.Status {
		case domain.StatusMemorizing:
			fs.Memorizing++
		case domain.StatusReviewing:
			fs.Reviewing++
		case domain.StatusMastered:
			fs.Mastered++
		}
		stats[key.Family] = fs
	}
	return stats
}

// Postpone implements Service.Postpone.
func (s *service) Postpone(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.RangeKey,
	days int,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.ReviewState
	err := s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		states := s.states.WithTx(tx)

		current, err := states.GetForUpdate(ctx, learnerID, key)
		if err != nil {
			if errors.Is(err, store.ErrReviewStateNotFound) {
				return ErrReviewStateNotFound
			}
			return fmt.Errorf("failed to get review state: %w", err)
		}

		next, err := s.scheduler.Postpone(current, days, s.now())
		if err != nil {
			return err
		}
		if err := states.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update review state: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReviewStateNotFound) || errors.Is(err, srs.ErrInvalidDays) {
			return nil, err
		}
		log.Error("failed to postpone review",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("range", key.String()))
		return nil, fmt.Errorf("failed to postpone review: %w", err)
	}

	log.Info("review postponed",
		slog.String("learner_id", learnerID.String()),
		slog.String("range", key.String()),
		slog.Int("days", days),
		slog.Time("next_review_at", updated.NextReviewAt))
	return updated, nil
}
