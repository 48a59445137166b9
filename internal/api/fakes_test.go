package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
	"github.com/phrazzld/tahfidz-api/internal/service/review"
)

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeRecitationService struct {
	SubmitFn  func(ctx context.Context, req recitation.SubmitRequest) (*recitation.SubmitResult, error)
	HistoryFn func(ctx context.Context, learnerID uuid.UUID, filter recitation.HistoryFilter) (*recitation.HistoryPage, error)
	DeleteFn  func(ctx context.Context, learnerID, submissionID uuid.UUID) error
}

func (f *fakeRecitationService) Submit(ctx context.Context, req recitation.SubmitRequest) (*recitation.SubmitResult, error) {
	return f.SubmitFn(ctx, req)
}

func (f *fakeRecitationService) History(
	ctx context.Context,
	learnerID uuid.UUID,
	filter recitation.HistoryFilter,
) (*recitation.HistoryPage, error) {
	return f.HistoryFn(ctx, learnerID, filter)
}

func (f *fakeRecitationService) Delete(ctx context.Context, learnerID, submissionID uuid.UUID) error {
	return f.DeleteFn(ctx, learnerID, submissionID)
}

type fakeReviewService struct {
	DueItemsFn func(ctx context.Context, learnerID uuid.UUID, family *domain.ContentFamily, limit int) ([]review.DueItem, error)
	ProgressFn func(ctx context.Context, learnerID uuid.UUID, filter review.ProgressFilter) (*review.Progress, error)
	PostponeFn func(ctx context.Context, learnerID uuid.UUID, key domain.RangeKey, days int) (*domain.ReviewState, error)
}

func (f *fakeReviewService) DueItems(
	ctx context.Context,
	learnerID uuid.UUID,
	family *domain.ContentFamily,
	limit int,
) ([]review.DueItem, error) {
	return f.DueItemsFn(ctx, learnerID, family, limit)
}

func (f *fakeReviewService) Progress(ctx context.Context, learnerID uuid.UUID, filter review.ProgressFilter) (*review.Progress, error) {
	return f.ProgressFn(ctx, learnerID, filter)
}

func (f *fakeReviewService) Postpone(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.RangeKey,
	days int,
) (*domain.ReviewState, error) {
	return f.PostponeFn(ctx, learnerID, key, days)
}

type fakeCatalog struct {
	ResolveFn     func(ctx context.Context, ref domain.ContentRef) (*domain.ContentRange, error)
	CollectionsFn func(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error)
}

func (f *fakeCatalog) Resolve(ctx context.Context, ref domain.ContentRef) (*domain.ContentRange, error) {
	return f.ResolveFn(ctx, ref)
}

func (f *fakeCatalog) Collections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error) {
	return f.CollectionsFn(ctx, family)
}

// newTestRouter wires handlers the way the server does, with the learner
// injected in place of token verification. A nil learner leaves the
// request unauthenticated.
func newTestRouter(
	learner *uuid.UUID,
	submissions recitation.Service,
	reviews review.Service,
	catalog CatalogReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.WithTraceID(req.Context(), "test-trace")
			if learner != nil {
				ctx = shared.WithLearnerID(ctx, *learner)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	r.Route("/api", func(r chi.Router) {
		if submissions != nil {
			h := NewSubmissionHandler(submissions, nil)
			r.Post("/submissions", h.Submit)
			r.Get("/submissions", h.History)
			r.Delete("/submissions/{id}", h.Delete)
		}
		if reviews != nil {
			h := NewReviewHandler(reviews, nil)
			r.Get("/reviews/due", h.Due)
			r.Post("/reviews/postpone", h.Postpone)
			r.Get("/progress", h.Progress)
		}
		if catalog != nil {
			h := NewCatalogHandler(catalog, nil)
			r.Get("/catalog/{family}", h.ListCollections)
			r.Get("/catalog/{family}/{collectionID}/units", h.GetUnits)
		}
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func testState(learner uuid.UUID, ref domain.ContentRef) *domain.ReviewState {
	return &domain.ReviewState{
		ID:             uuid.New(),
		LearnerID:      learner,
		Ref:            ref,
		Status:         domain.StatusReviewing,
		LastScore:      85,
		LastReviewedAt: testNow,
		NextReviewAt:   testNow.AddDate(0, 0, 1),
		EaseFactor:     2.5,
		IntervalDays:   1,
		Repetitions:    1,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func testSubmission(learner uuid.UUID, ref domain.ContentRef) *domain.Submission {
	return &domain.Submission{
		ID:         uuid.New(),
		LearnerID:  learner,
		Ref:        ref,
		Analysis:   domain.Analysis{Score: 85, Summary: "Bacaan lancar"},
		Grade:      domain.GradeVeryGood,
		CanAdvance: true,
		Status:     domain.SubmissionCompleted,
		CreatedAt:  testNow,
	}
}
