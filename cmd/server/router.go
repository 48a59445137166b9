package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/tahfidz-api/internal/api"
	"github.com/phrazzld/tahfidz-api/internal/api/middleware"
)

// setupRouter registers every route with its middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTraceMiddleware(app.logger))

	submissions := api.NewSubmissionHandler(app.recitationService, app.logger)
	reviews := api.NewReviewHandler(app.reviewService, app.logger)
	catalogHandler := api.NewCatalogHandler(app.catalog, app.logger)

	var pinger api.Pinger
	if app.db != nil {
		pinger = app.db
	}
	health := api.NewHealthHandler(pinger, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.auth.Authenticate)

		r.Post("/submissions", submissions.Submit)
		r.Get("/submissions", submissions.History)
		r.Delete("/submissions/{id}", submissions.Delete)

		r.Get("/reviews/due", reviews.Due)
		r.Post("/reviews/postpone", reviews.Postpone)
		r.Get("/progress", reviews.Progress)

		r.Get("/catalog/{family}", catalogHandler.ListCollections)
		r.Get("/catalog/{family}/{collectionID}/units", catalogHandler.GetUnits)
	})

	r.Get("/health", health.Health)

	return r
}
