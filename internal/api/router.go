package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ywmark/internal/library"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *library.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/*", h.GetProject)
	r.Get("/preview/*", h.Preview)

	// Conversion.
	r.Post("/convert", h.Convert)
	r.Get("/conversions", h.Conversions)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
