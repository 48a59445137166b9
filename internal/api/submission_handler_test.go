package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionHandler_Submit(t *testing.T) {
	learner := uuid.New()
	halaqah := uuid.New()
	ref := domain.HadithRef{KitabID: "arbain", HadithStart: 1, HadithEnd: 5}

	var got recitation.SubmitRequest
	svc := &fakeRecitationService{
		SubmitFn: func(_ context.Context, req recitation.SubmitRequest) (*recitation.SubmitResult, error) {
			got = req
			sub := testSubmission(learner, req.Ref)
			return &recitation.SubmitResult{
				Submission:    sub,
				ReviewState:   testState(learner, req.Ref),
				Grade:         domain.GradeVeryGood,
				CanAdvance:    true,
				NextRangeHint: &recitation.NextRangeHint{Ref: domain.NextRef(req.Ref)},
			}, nil
		},
	}
	router := newTestRouter(&learner, svc, nil, nil)

	body := fmt.Sprintf(`{
		"family": "hadits",
		"collection_id": "arbain",
		"start": 1,
		"end": 5,
		"audio_base64": "  AAAA  ",
		"mime_type": "audio/webm",
		"halaqah_id": %q
	}`, halaqah)
	w := doRequest(t, router, http.MethodPost, "/api/submissions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, learner, got.LearnerID)
	assert.Equal(t, ref, got.Ref)
	assert.Equal(t, "AAAA", got.Input.AudioBase64)
	assert.Equal(t, "audio/webm", got.Input.MimeType)
	require.NotNil(t, got.Session.HalaqahID)
	assert.Equal(t, halaqah, *got.Session.HalaqahID)

	var resp SubmitRecitationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.GradeVeryGood, resp.Grade)
	assert.Equal(t, "jayyid_jiddan", resp.Submission.GradeLabel)
	assert.True(t, resp.CanAdvance)
	assert.Equal(t, RangeResponse{Family: domain.FamilyHadith, CollectionID: "arbain", Start: 1, End: 5}, resp.Submission.Range)
	assert.Equal(t, domain.StatusReviewing, resp.ReviewState.Status)
	require.NotNil(t, resp.NextRangeHint)
	require.NotNil(t, resp.NextRangeHint.Range)
	assert.Equal(t, 6, resp.NextRangeHint.Range.Start)
	assert.Equal(t, 6, resp.NextRangeHint.Range.End)
	assert.False(t, resp.NextRangeHint.EndOfCollection)
}

func TestSubmissionHandler_Submit_EndOfCollection(t *testing.T) {
	learner := uuid.New()
	svc := &fakeRecitationService{
		SubmitFn: func(_ context.Context, req recitation.SubmitRequest) (*recitation.SubmitResult, error) {
			return &recitation.SubmitResult{
				Submission:    testSubmission(learner, req.Ref),
				ReviewState:   testState(learner, req.Ref),
				Grade:         domain.GradeExcellent,
				CanAdvance:    true,
				NextRangeHint: &recitation.NextRangeHint{EndOfCollection: true},
			}, nil
		},
	}

	w := doRequest(t, newTestRouter(&learner, svc, nil, nil), http.MethodPost, "/api/submissions",
		`{"family":"quran","collection_id":"1","start":1,"end":7,"transcript":"bismillah"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.JSONEq(t, `{"end_of_collection":true}`, string(resp["next_range_hint"]))
}

func TestSubmissionHandler_Submit_NoHint(t *testing.T) {
	learner := uuid.New()
	svc := &fakeRecitationService{
		SubmitFn: func(_ context.Context, req recitation.SubmitRequest) (*recitation.SubmitResult, error) {
			return &recitation.SubmitResult{
				Submission:  testSubmission(learner, req.Ref),
				ReviewState: testState(learner, req.Ref),
				Grade:       domain.GradeFailing,
			}, nil
		},
	}

	w := doRequest(t, newTestRouter(&learner, svc, nil, nil), http.MethodPost, "/api/submissions",
		`{"family":"verse_collection","collection_id":"jazariyyah","start":3,"transcript":"..."}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "null", string(resp["next_range_hint"]))
}

func TestSubmissionHandler_Submit_Errors(t *testing.T) {
	learner := uuid.New()
	validBody := `{"family":"hadith","collection_id":"arbain","start":1,"transcript":"innamal a'malu"}`

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		wantStatus     int
		wantMessage    string
		wantRetryAfter string
	}{
		{name: "malformed json", body: `{"family":`, wantStatus: http.StatusBadRequest, wantMessage: "Invalid request format"},
		{
			name:        "unknown field",
			body:        `{"family":"hadith","collection_id":"arbain","start":1,"score":100}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request format",
		},
		{
			name:        "missing collection",
			body:        `{"family":"hadith","start":1,"transcript":"x"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid collection_id: required field",
		},
		{
			name:        "start below one",
			body:        `{"family":"hadith","collection_id":"arbain","start":0,"transcript":"x"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid start: too small",
		},
		{
			name:        "bad halaqah",
			body:        `{"family":"hadith","collection_id":"arbain","start":1,"transcript":"x","halaqah_id":"nope"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid halaqah_id: must be a UUID",
		},
		{
			name:        "unsupported family",
			body:        `{"family":"tafsir","collection_id":"x","start":1,"transcript":"x"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Unsupported content family",
		},
		{
			name:        "quran collection not a number",
			body:        `{"family":"quran","collection_id":"fatihah","start":1,"transcript":"x"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid collection_id",
		},
		{
			name:        "empty recitation",
			body:        validBody,
			serviceErr:  domain.ErrEmptyRecitation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Recitation must include audio or a transcript",
		},
		{
			name:        "range out of bounds",
			body:        validBody,
			serviceErr:  fmt.Errorf("%w: 41-45 outside 1-42", catalog.ErrRangeOutOfBounds),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Range is outside the collection",
		},
		{
			name:        "range inverted",
			body:        validBody,
			serviceErr:  catalog.ErrRangeInverted,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Range start must not be after its end",
		},
		{
			name:        "collection unknown",
			body:        validBody,
			serviceErr:  catalog.ErrRangeNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Range not found in catalog",
		},
		{
			name:           "rate limited",
			body:           validBody,
			serviceErr:     &recitation.RateLimitedError{RetryAfter: 44200 * time.Millisecond},
			wantStatus:     http.StatusTooManyRequests,
			wantMessage:    "Too many submissions",
			wantRetryAfter: "45",
		},
		{
			name:        "limiter unavailable",
			body:        validBody,
			serviceErr:  recitation.ErrRateLimiterUnavailable,
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Service temporarily unavailable",
		},
		{
			name:        "analyzer unavailable",
			body:        validBody,
			serviceErr:  fmt.Errorf("%w: gemini: 500", recitation.ErrAnalyzerUnavailable),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Recitation analysis is unavailable",
		},
		{
			name:        "persistence",
			body:        validBody,
			serviceErr:  recitation.NewServiceError("submit", "persist", recitation.ErrPersistence),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to save submission",
		},
		{
			name:        "unexpected",
			body:        validBody,
			serviceErr:  errors.New("pq: connection refused at 10.0.0.3"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to submit recitation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &fakeRecitationService{
				SubmitFn: func(context.Context, recitation.SubmitRequest) (*recitation.SubmitResult, error) {
					called = true
					return nil, tt.serviceErr
				},
			}

			w := doRequest(t, newTestRouter(&learner, svc, nil, nil), http.MethodPost, "/api/submissions", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.serviceErr != nil, called)

			var resp struct {
				Error   string `json:"error"`
				TraceID string `json:"trace_id"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.wantMessage)
			assert.Equal(t, "test-trace", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "10.0.0.3")
			assert.Equal(t, tt.wantRetryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestSubmissionHandler_Unauthenticated(t *testing.T) {
	svc := &fakeRecitationService{}
	router := newTestRouter(nil, svc, nil, nil)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/api/submissions", `{}`},
		{http.MethodGet, "/api/submissions", ""},
		{http.MethodDelete, "/api/submissions/" + uuid.NewString(), ""},
	} {
		w := doRequest(t, router, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.target)
	}
}

func TestSubmissionHandler_History(t *testing.T) {
	learner := uuid.New()
	ref := domain.QuranRef{SurahNumber: 112, AyahStart: 1, AyahEnd: 4}

	var got recitation.HistoryFilter
	svc := &fakeRecitationService{
		HistoryFn: func(_ context.Context, id uuid.UUID, filter recitation.HistoryFilter) (*recitation.HistoryPage, error) {
			assert.Equal(t, learner, id)
			got = filter
			return &recitation.HistoryPage{
				Items:   []*domain.Submission{testSubmission(learner, ref)},
				Total:   3,
				Limit:   1,
				Offset:  1,
				HasMore: true,
			}, nil
		},
	}

	w := doRequest(t, newTestRouter(&learner, svc, nil, nil), http.MethodGet,
		"/api/submissions?family=quran&limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, got.Family)
	assert.Equal(t, domain.FamilyQuran, *got.Family)
	assert.Equal(t, 1, got.Limit)
	assert.Equal(t, 1, got.Offset)

	var resp SubmissionPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "112", resp.Items[0].Range.CollectionID)
	assert.Equal(t, 3, resp.Total)
	assert.True(t, resp.HasMore)
}

func TestSubmissionHandler_History_BadQuery(t *testing.T) {
	learner := uuid.New()
	svc := &fakeRecitationService{}
	router := newTestRouter(&learner, svc, nil, nil)

	for _, target := range []string{
		"/api/submissions?limit=-1",
		"/api/submissions?offset=abc",
		"/api/submissions?family=tafsir",
	} {
		w := doRequest(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestSubmissionHandler_Delete(t *testing.T) {
	learner := uuid.New()
	subID := uuid.New()

	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
	}{
		{name: "deleted", target: "/api/submissions/" + subID.String(), wantStatus: http.StatusNoContent},
		{
			name:       "not found",
			target:     "/api/submissions/" + subID.String(),
			err:        recitation.ErrSubmissionNotFound,
			wantStatus: http.StatusNotFound,
		},
		{name: "bad id", target: "/api/submissions/not-a-uuid", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRecitationService{
				DeleteFn: func(_ context.Context, l, s uuid.UUID) error {
					assert.Equal(t, learner, l)
					assert.Equal(t, subID, s)
					return tt.err
				},
			}
			w := doRequest(t, newTestRouter(&learner, svc, nil, nil), http.MethodDelete, tt.target, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}
