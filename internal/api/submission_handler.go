package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
)

// SubmissionHandler serves recitation submissions and their history.
type SubmissionHandler struct {
	service recitation.Service
	logger  *slog.Logger
}

// NewSubmissionHandler creates a SubmissionHandler.
func NewSubmissionHandler(service recitation.Service, logger *slog.Logger) *SubmissionHandler {
	if service == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("service cannot be nil for SubmissionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{
		service: service,
		logger:  logger.With(slog.String("component", "submission_handler")),
	}
}

// Submit handles POST /api/submissions.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	var req SubmitRecitationRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		if MapErrorToStatusCode(err) == http.StatusRequestEntityTooLarge {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	submitReq, err := req.toSubmitRequest(learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.service.Submit(r.Context(), submitReq)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit recitation")
		return
	}

	log.Info("recitation submitted",
		slog.String("submission_id", result.Submission.ID.String()),
		slog.String("range", result.ReviewState.Key().String()),
		slog.String("grade", string(result.Grade)))
	shared.RespondWithJSON(w, r, http.StatusCreated, submitResultToResponse(result))
}

// History handles GET /api/submissions.
func (h *SubmissionHandler) History(w http.ResponseWriter, r *http.Request) {
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
	offset, err := parseIntQuery(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.service.History(r.Context(), learnerID, recitation.HistoryFilter{
		Family: family,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load submissions")
		return
	}

	items := make([]SubmissionResponse, len(page.Items))
	for i, s := range page.Items {
		items[i] = submissionToResponse(s)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SubmissionPageResponse{
		Items:   items,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	})
}

// Delete handles DELETE /api/submissions/{id}.
func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}
	submissionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.service.Delete(r.Context(), learnerID, submissionID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete submission")
		return
	}

	log.Info("submission deleted", slog.String("submission_id", submissionID.String()))
	w.WriteHeader(http.StatusNoContent)
}
