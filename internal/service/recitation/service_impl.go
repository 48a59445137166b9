package recitation

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/domain/grading"
	"github.com/phrazzld/tahfidz-api/internal/domain/srs"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/ratelimit"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

const (
	defaultHistoryLimit   = 20
	maxHistoryLimit       = 100
	defaultPersistTimeout = 10 * time.Second

	// maxPersistAttempts bounds retries after losing a race to create the
	// first review state of a range.
	maxPersistAttempts = 3
)

// RangeResolver turns a reference into canonical content.
type RangeResolver interface {
	Resolve(ctx context.Context, ref domain.ContentRef) (*domain.ContentRange, error)
}

// Dependencies bundles the collaborators of the service.
type Dependencies struct {
	Resolver    RangeResolver
	Limiter     ratelimit.Limiter
	Analyzer    analysis.Analyzer
	Scheduler   srs.Service
	TxRunner    store.TxRunner
	States      store.ReviewStateStore
	Submissions store.SubmissionStore
	Logger      *slog.Logger

	// PersistTimeout bounds the transactional step, which runs detached from
	// the request context once analysis has succeeded.
	PersistTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	resolver       RangeResolver
	limiter        ratelimit.Limiter
	analyzer       analysis.Analyzer
	scheduler      srs.Service
	txRunner       store.TxRunner
	states         store.ReviewStateStore
	submissions    store.SubmissionStore
	persistTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewService creates a recitation Service. It panics on missing collaborators.
func NewService(deps Dependencies) Service {
	if deps.Resolver == nil {
		panic("resolver cannot be nil")
	}
	if deps.Limiter == nil {
		panic("limiter cannot be nil")
	}
	if deps.Analyzer == nil {
		panic("analyzer cannot be nil")
	}
	if deps.TxRunner == nil {
		panic("txRunner cannot be nil")
	}
	if deps.States == nil {
		panic("states cannot be nil")
	}
	if deps.Submissions == nil {
		panic("submissions cannot be nil")
	}

	if deps.Scheduler == nil {
		deps.Scheduler = srs.NewDefaultService()
	}
	if deps.PersistTimeout <= 0 {
		deps.PersistTimeout = defaultPersistTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &serviceImpl{
		resolver:       deps.Resolver,
		limiter:        deps.Limiter,
		analyzer:       deps.Analyzer,
		scheduler:      deps.Scheduler,
		txRunner:       deps.TxRunner,
		states:         deps.States,
		submissions:    deps.Submissions,
		persistTimeout: deps.PersistTimeout,
		now:            deps.Now,
		logger:         deps.Logger.With(slog.String("component", "recitation_service")),
	}
}

// Submit implements Service.Submit.
func (s *serviceImpl) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.LearnerID == uuid.Nil {
		return nil, domain.NewValidationError("learner_id", "cannot be empty", domain.ErrInvalidID)
	}
	if req.Ref == nil || !req.Ref.Family().Valid() {
		return nil, domain.ErrUnsupportedFamily
	}

	recitation, err := decodeInput(req.Input)
	if err != nil {
		return nil, err
	}

	rng, err := s.resolver.Resolve(ctx, req.Ref)
	if err != nil {
		log.Debug("range resolution failed",
			slog.String("learner_id", req.LearnerID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	key := rng.Key()

	limiterKey := req.LearnerID.String()
	decision, err := s.limiter.TryAcquire(ctx, limiterKey)
	if err != nil {
		log.Error("rate limiter failed",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", limiterKey))
		return nil, fmt.Errorf("%w: %w", ErrRateLimiterUnavailable, err)
	}
	if !decision.Allowed {
		log.Info("recitation rate limited",
			slog.String("learner_id", limiterKey),
			slog.Duration("retry_after", decision.RetryAfter))
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	result, err := s.analyzer.Analyze(ctx, analysis.Request{Range: rng, Recitation: recitation})
	if err != nil {
		log.Error("recitation analysis failed",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", limiterKey),
			slog.String("range", key.String()))
		s.releaseSlot(ctx, limiterKey)
		return nil, fmt.Errorf("%w: %w", ErrAnalyzerUnavailable, err)
	}
	if result == nil {
		log.Error("recitation analysis returned no result",
			slog.String("learner_id", limiterKey),
			slog.String("range", key.String()))
		s.releaseSlot(ctx, limiterKey)
		return nil, fmt.Errorf("%w: analyzer returned no result", ErrAnalyzerUnavailable)
	}

	result.Score = grading.Clamp(result.Score)
	graded, err := grading.Classify(result.Score)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyzerUnavailable, err)
	}

	now := s.now().UTC()
	sub, state, err := s.persist(ctx, req, rng.Ref, result, graded, now)
	if err != nil {
		return nil, err
	}

	out := &SubmitResult{
		Submission:  sub,
		ReviewState: state,
		Range:       rng,
		Grade:       graded.Grade,
		CanAdvance:  graded.CanAdvance,
	}
	if graded.CanAdvance {
		if rng.AtCollectionEnd() {
			out.NextRangeHint = &NextRangeHint{EndOfCollection: true}
		} else {
			out.NextRangeHint = &NextRangeHint{Ref: domain.NextRef(rng.Ref)}
		}
	}

	log.Info("recitation graded",
		slog.String("learner_id", limiterKey),
		slog.String("submission_id", sub.ID.String()),
		slog.String("range", key.String()),
		slog.Float64("score", result.Score),
		slog.String("grade", string(graded.Grade)),
		slog.String("status", string(state.Status)),
		slog.Time("next_review_at", state.NextReviewAt))

	return out, nil
}

// persist stores the submission and the updated review state in one
// transaction. It runs on a context detached from the caller so a client
// disconnect after a successful analysis cannot half-record the attempt.
func (s *serviceImpl) persist(
	ctx context.Context,
	req SubmitRequest,
	ref domain.ContentRef,
	result *domain.Analysis,
	graded grading.Result,
	now time.Time,
) (*domain.Submission, *domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	var (
		sub   *domain.Submission
		state *domain.ReviewState
	)

	for attempt := 1; ; attempt++ {
		err := s.txRunner.RunInTransaction(persistCtx, func(ctx context.Context, tx *sql.Tx) error {
			states := s.states.WithTx(tx)
			submissions := s.submissions.WithTx(tx)

			prior, err := states.GetForUpdate(ctx, req.LearnerID, ref.Key())
			if err != nil {
				if !errors.Is(err, store.ErrReviewStateNotFound) {
					return fmt.Errorf("failed to get review state: %w", err)
				}
				prior = nil
			}

			next, err := s.scheduler.Update(prior, srs.ReviewInput{
				LearnerID: req.LearnerID,
				Ref:       ref,
				Score:     result.Score,
			}, now)
			if err != nil {
				return fmt.Errorf("failed to schedule review: %w", err)
			}

			newSub, err := domain.NewSubmission(
				req.LearnerID, ref, req.Session.HalaqahID, *result, graded.Grade, graded.CanAdvance, now,
			)
			if err != nil {
				return fmt.Errorf("failed to build submission: %w", err)
			}
			if err := submissions.Create(ctx, newSub); err != nil {
				return fmt.Errorf("failed to create submission: %w", err)
			}

			if prior == nil {
				err = states.Create(ctx, next)
			} else {
				err = states.Update(ctx, next)
			}
			if err != nil {
				return fmt.Errorf("failed to save review state: %w", err)
			}

			sub, state = newSub, next
			return nil
		})
		if err == nil {
			return sub, state, nil
		}

		if errors.Is(err, store.ErrReviewStateExists) && attempt < maxPersistAttempts {
			log.Info("review state created concurrently, retrying",
				slog.String("learner_id", req.LearnerID.String()),
				slog.String("range", ref.Key().String()),
				slog.Int("attempt", attempt))
			continue
		}

		log.Error("failed to persist recitation",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", req.LearnerID.String()),
			slog.Int("attempt", attempt))
		return nil, nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// releaseSlot refunds the limiter slot of a request that never produced a
// graded result, when the limiter supports it.
func (s *serviceImpl) releaseSlot(ctx context.Context, key string) {
	releaser, ok := s.limiter.(ratelimit.SlotReleaser)
	if !ok {
		return
	}
	if err := releaser.Release(context.WithoutCancel(ctx), key); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to release rate limit slot",
			slog.String("error", redact.Error(err)))
	}
}

// History implements Service.History.
func (s *serviceImpl) History(ctx context.Context, learnerID uuid.UUID, filter HistoryFilter) (*HistoryPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if learnerID == uuid.Nil {
		return nil, domain.NewValidationError("learner_id", "cannot be empty", domain.ErrInvalidID)
	}
	if filter.Family != nil && !filter.Family.Valid() {
		return nil, domain.ErrUnsupportedFamily
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	storeFilter := store.SubmissionFilter{Family: filter.Family}

	items, err := s.submissions.List(ctx, learnerID, storeFilter, store.Page{Limit: limit, Offset: offset})
	if err != nil {
		log.Error("failed to list submissions",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return nil, NewServiceError("history", "failed to list submissions", err)
	}

	total, err := s.submissions.Count(ctx, learnerID, storeFilter)
	if err != nil {
		log.Error("failed to count submissions",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		return nil, NewServiceError("history", "failed to count submissions", err)
	}

	return &HistoryPage{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}, nil
}

// Delete implements Service.Delete.
func (s *serviceImpl) Delete(ctx context.Context, learnerID, submissionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.submissions.SoftDelete(ctx, learnerID, submissionID, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		log.Error("failed to delete submission",
			slog.String("error", redact.Error(err)),
			slog.String("submission_id", submissionID.String()))
		return NewServiceError("delete", "failed to delete submission", err)
	}
	return nil
}

// decodeInput validates the client payload and decodes its audio.
func decodeInput(in RecitationInput) (analysis.Recitation, error) {
	rec := analysis.Recitation{
		MimeType:   strings.TrimSpace(in.MimeType),
		Transcript: strings.TrimSpace(in.Transcript),
	}

	payload := strings.TrimSpace(in.AudioBase64)
	if payload != "" {
		// Browsers send data URLs: data:audio/webm;base64,....
		if rest, ok := strings.CutPrefix(payload, "data:"); ok {
			meta, data, found := strings.Cut(rest, ",")
			if !found || !strings.HasSuffix(meta, ";base64") {
				return rec, domain.NewValidationError("audio", "malformed data URL", ErrInvalidAudio)
			}
			if rec.MimeType == "" {
				rec.MimeType = strings.TrimSuffix(meta, ";base64")
			}
			payload = data
		}

		audio, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return rec, domain.NewValidationError("audio", "invalid base64", ErrInvalidAudio)
		}
		rec.Audio = audio
	}

	if rec.Empty() {
		return rec, domain.NewValidationError("recitation", "audio or transcript is required", domain.ErrEmptyRecitation)
	}
	return rec, nil
}
