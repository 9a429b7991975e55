package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/hashpool/internal/api"
	apiMiddleware "github.com/phrazzld/hashpool/internal/api/middleware"
	"github.com/phrazzld/hashpool/internal/metrics"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	hashHandler := api.NewHashHandler(app.passwordService, app.pool, app.logger)

	r.Route("/bcrypt", func(r chi.Router) {
		r.Post("/", hashHandler.Hash)
		r.Post("/verify", hashHandler.Verify)
	})

	r.Get("/stats", hashHandler.Stats)
	r.Get("/health", hashHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(app.registry))

	return r
}
