package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// requireLearner returns the authenticated learner or writes a 401.
func requireLearner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	learnerID, ok := shared.LearnerIDFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return uuid.Nil, false
	}
	return learnerID, true
}

// getPathUUID parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// parseFamilyParam parses an optional family. An empty value selects all
// families.
func parseFamilyParam(raw string) (*domain.ContentFamily, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	f, err := domain.ParseContentFamily(raw)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// parseStatusParam parses an optional review status.
func parseStatusParam(raw string) (*domain.ReviewStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	st, err := domain.ParseReviewStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// parseIntQuery reads a non-negative integer query parameter. A missing
// value returns def.
func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", nil)
	}
	return n, nil
}
