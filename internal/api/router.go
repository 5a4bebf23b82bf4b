package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/orgsynth/internal/browse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *browse.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entities.
	r.Get("/entities", h.ListEntities)
	r.Get("/entities/{type}/{id}", h.GetEntity)
	r.Get("/entities/{type}/{id}/neighbors", h.Neighbors)
	r.Get("/documents/{id}/markdown", h.DocumentMarkdown)

	// Graph.
	r.Get("/edges", h.ListEdges)
	r.Get("/overlaps", h.ListOverlaps)

	// Search.
	r.Get("/search", h.Search)

	// Run.
	r.Get("/report", h.Report)
	r.Get("/stats", h.Stats)
	r.Get("/files", h.Files)

	return r
}
