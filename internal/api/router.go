package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteweave/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(LoggerMiddleware(logger))
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/vaults", h.ListVaults)
	r.Get("/notes", h.ListNotes)
	r.Route("/notes/{vault}/{fname}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Get("/anchors", h.Anchors)
		r.Get("/blocks", h.Blocks)
		r.Get("/links", h.Links)
		r.Get("/backlinks", h.Backlinks)
		r.Get("/expand", h.Expand)
		r.Post("/normalize", h.Normalize)
		r.Post("/h1-title", h.PromoteH1)
	})

	r.Post("/resolve", h.Resolve)
	r.Post("/rename", h.Rename)
	r.Post("/sync", h.Sync)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
