package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/noteservice"
	"github.com/starford/gebo/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group and
// receives change notifications from the write handlers.
func NewRouter(svc *noteservice.Service, links *backlink.Service, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(svc, links, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Backlink synchronization.
	r.Post("/sync", h.Sync)

	// Graph queries.
	r.Get("/graph", h.Snapshot)
	r.Get("/graph/top", h.TopReferenced)
	r.Get("/graph/outgoing/{noteID}", h.Outgoing)
	r.Get("/graph/incoming/{noteID}", h.Incoming)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{noteID}", h.GetNote)
	r.Put("/notes/{noteID}", h.UpdateNote)
	r.Delete("/notes/{noteID}", h.DeleteNote)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
