package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entry CRUD.
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.CreateEntry)
	r.Post("/entries/text", h.CreateText)
	r.Post("/entries/import", h.ImportEntries)
	r.Get("/entries/{category}/{id}", h.GetEntry)
	r.Delete("/entries/{category}/{id}", h.DeleteEntry)

	// Search.
	r.Get("/search", h.SearchEntries)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
