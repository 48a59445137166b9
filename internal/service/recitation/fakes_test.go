package recitation

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/ratelimit"
	"github.com/phrazzld/tahfidz-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// snapshotter is implemented by the in-memory stores so fakeTxRunner can
// roll them back.
type snapshotter interface {
	snapshot() (restore func())
}

// fakeTxRunner runs fn with a nil *sql.Tx and restores every registered
// store when fn fails.
type fakeTxRunner struct {
	stores []snapshotter
	calls  int
}

func (r *fakeTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	r.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	restores := make([]func(), 0, len(r.stores))
	for _, s := range r.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx, nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type memReviewStates struct {
	mu     sync.Mutex
	states map[string]domain.ReviewState
	// beforeCreate runs before every Create; a non-nil error aborts it.
	beforeCreate func(s *memReviewStates, state *domain.ReviewState) error
}

func newMemReviewStates() *memReviewStates {
	return &memReviewStates{states: make(map[string]domain.ReviewState)}
}

func stateKey(learnerID uuid.UUID, key domain.RangeKey) string {
	return learnerID.String() + "|" + key.String()
}

func (m *memReviewStates) put(s domain.ReviewState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[stateKey(s.LearnerID, s.Key())] = s
}

func (m *memReviewStates) Get(_ context.Context, learnerID uuid.UUID, key domain.RangeKey) (*domain.ReviewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[stateKey(learnerID, key)]
	if !ok {
		return nil, store.ErrReviewStateNotFound
	}
	return &s, nil
}

func (m *memReviewStates) GetForUpdate(ctx context.Context, learnerID uuid.UUID, key domain.RangeKey) (*domain.ReviewState, error) {
	return m.Get(ctx, learnerID, key)
}

func (m *memReviewStates) Create(_ context.Context, state *domain.ReviewState) error {
	if m.beforeCreate != nil {
		if err := m.beforeCreate(m, state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := stateKey(state.LearnerID, state.Key())
	if _, ok := m.states[k]; ok {
		return store.ErrReviewStateExists
	}
	m.states[k] = *state
	return nil
}

func (m *memReviewStates) Update(_ context.Context, state *domain.ReviewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := stateKey(state.LearnerID, state.Key())
	if _, ok := m.states[k]; !ok {
		return store.ErrReviewStateNotFound
	}
	m.states[k] = *state
	return nil
}

func (m *memReviewStates) ListDue(context.Context, uuid.UUID, *domain.ContentFamily, time.Time, int) ([]*domain.ReviewState, error) {
	return nil, errors.New("not used")
}

func (m *memReviewStates) List(context.Context, uuid.UUID, store.ReviewStateFilter) ([]*domain.ReviewState, error) {
	return nil, errors.New("not used")
}

func (m *memReviewStates) WithTx(*sql.Tx) store.ReviewStateStore { return m }

func (m *memReviewStates) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

type memSubmissions struct {
	mu        sync.Mutex
	subs      []domain.Submission
	createErr error
}

func (m *memSubmissions) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := append([]domain.Submission(nil), m.subs...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.subs = saved
	}
}

func (m *memSubmissions) Create(_ context.Context, s *domain.Submission) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, *s)
	return nil
}

func (m *memSubmissions) GetByID(context.Context, uuid.UUID) (*domain.Submission, error) {
	return nil, store.ErrSubmissionNotFound
}

func (m *memSubmissions) List(context.Context, uuid.UUID, store.SubmissionFilter, store.Page) ([]*domain.Submission, error) {
	return nil, errors.New("not used")
}

func (m *memSubmissions) Count(context.Context, uuid.UUID, store.SubmissionFilter) (int, error) {
	return 0, errors.New("not used")
}

func (m *memSubmissions) SoftDelete(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return errors.New("not used")
}

func (m *memSubmissions) WithTx(*sql.Tx) store.SubmissionStore { return m }

func (m *memSubmissions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// fakeLimiter answers with a fixed decision and counts releases.
type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	acquired int
}

func (f *fakeLimiter) TryAcquire(context.Context, string) (ratelimit.Decision, error) {
	f.acquired++
	return f.decision, f.err
}

type releasingLimiter struct {
	fakeLimiter
	released []string
}

func (f *releasingLimiter) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

// mockSubmissionStore is a testify mock used for the read paths.
type mockSubmissionStore struct {
	mock.Mock
}

func (m *mockSubmissionStore) Create(ctx context.Context, s *domain.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*domain.Submission)
	return sub, args.Error(1)
}

func (m *mockSubmissionStore) List(
	ctx context.Context,
	learnerID uuid.UUID,
	filter store.SubmissionFilter,
	page store.Page,
) ([]*domain.Submission, error) {
	args := m.Called(ctx, learnerID, filter, page)
	subs, _ := args.Get(0).([]*domain.Submission)
	return subs, args.Error(1)
}

func (m *mockSubmissionStore) Count(ctx context.Context, learnerID uuid.UUID, filter store.SubmissionFilter) (int, error) {
	args := m.Called(ctx, learnerID, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockSubmissionStore) SoftDelete(ctx context.Context, learnerID, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, learnerID, id, at).Error(0)
}

func (m *mockSubmissionStore) WithTx(*sql.Tx) store.SubmissionStore { return m }
