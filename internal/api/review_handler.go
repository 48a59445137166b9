package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/service/review"
)

// ReviewHandler serves the review queue and progress overview.
type ReviewHandler struct {
	service review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(service review.Service, logger *slog.Logger) *ReviewHandler {
	if service == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("service cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		service: service,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// Due handles GET /api/reviews/due.
func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	family, err := parseFamilyParam(r.URL.Query().Get("family"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.service.DueItems(r.Context(), learnerID, family, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load due reviews")
		return
	}

	resp := DueItemsResponse{Items: make([]DueItemResponse, len(items)), Total: len(items)}
	for i, item := range items {
		resp.Items[i] = DueItemResponse{
			ReviewStateResponse: reviewStateToResponse(item.State),
			Title:               item.Title,
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Postpone handles POST /api/reviews/postpone.
func (h *ReviewHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	var req PostponeReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	ref, err := parseRef(req.Family, req.CollectionID, req.Start, req.End)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.service.Postpone(r.Context(), learnerID, ref.Key(), req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reviewStateToResponse(state))
}

// Progress handles GET /api/progress.
func (h *ReviewHandler) Progress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	family, err := parseFamilyParam(r.URL.Query().Get("family"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	status, err := parseStatusParam(r.URL.Query().Get("status"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	progress, err := h.service.Progress(r.Context(), learnerID, review.ProgressFilter{Family: family, Status: status})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load progress")
		return
	}

	states := make([]ReviewStateResponse, len(progress.States))
	for i, st := range progress.States {
		states[i] = reviewStateToResponse(st)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{
		Progress: states,
		Stats:    progress.Stats,
		Total:    len(states),
	})
}
