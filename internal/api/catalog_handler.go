package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// CatalogReader is the part of the catalog resolver the handler uses.
type CatalogReader interface {
	Resolve(ctx context.Context, ref domain.ContentRef) (*domain.ContentRange, error)
	Collections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error)
}

// CatalogHandler serves read-only catalog browsing.
type CatalogHandler struct {
	catalog CatalogReader
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog CatalogReader, logger *slog.Logger) *CatalogHandler {
	if catalog == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("catalog cannot be nil for CatalogHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "catalog_handler")),
	}
}

// ListCollections handles GET /api/catalog/{family}.
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	family, err := domain.ParseContentFamily(chi.URLParam(r, "family"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	collections, err := h.catalog.Collections(r.Context(), family)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load catalog")
		return
	}
	if collections == nil {
		collections = []domain.Collection{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CollectionsResponse{Family: family, Collections: collections})
}

// GetUnits handles GET /api/catalog/{family}/{collectionID}/units?start=&end=.
// start defaults to 1 and end to start.
func (h *CatalogHandler) GetUnits(w http.ResponseWriter, r *http.Request) {
	start, err := parseIntQuery(r, "start", 1)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	end, err := parseIntQuery(r, "end", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if start == 0 {
		HandleAPIError(w, r, domain.NewValidationError("start", "must be at least 1", nil), "")
		return
	}

	ref, err := parseRef(chi.URLParam(r, "family"), chi.URLParam(r, "collectionID"), start, end)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rng, err := h.catalog.Resolve(r.Context(), ref)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load units")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ContentRangeResponse{
		Range:      rangeToResponse(rng.Ref),
		Collection: rng.Collection,
		Units:      rng.Units,
		Text:       rng.Text,
	})
}
