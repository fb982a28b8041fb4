package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/scry-materials/internal/api"
	apiMiddleware "github.com/phrazzld/scry-materials/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	retryHandler := api.NewRetryHandler(app.coordinator, app.logger)
	videoHandler := api.NewVideoHandler(app.videoStore, app.eventEmitter, app.logger)

	r.Route("/internal", func(r chi.Router) {
		r.Post("/retry-materials", retryHandler.RetryMaterials)

		r.Post("/videos", videoHandler.CreateVideo)
		r.Get("/videos/{"+api.VideoIDParam+"}", videoHandler.GetVideo)
		r.Post("/videos/{"+api.VideoIDParam+"}/materials", videoHandler.RequestMaterials)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
