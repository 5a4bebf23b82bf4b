package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/browse"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *browse.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *browse.Service) *Handler {
	return &Handler{svc: svc}
}

// entityRef reads {type} and {id} from the URL.
func entityRef(r *http.Request) (models.Ref, error) {
	t, err := browse.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		return models.Ref{}, err
	}
	return models.Ref{Type: t, ID: chi.URLParam(r, "id")}, nil
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional filtering and pagination
//	@Tags			entities
//	@Produce		json
//	@Param			type	query		string	false	"Entity type"
//	@Param			team	query		string	false	"Owning team"
//	@Param			sort	query		string	false	"Sort field"	Enums(created_at, title)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EntityListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := store.EntityQuery{
		Team:   q.Get("team"),
		Sort:   q.Get("sort"),
		Limit:  intParam(r, "limit"),
		Offset: intParam(r, "offset"),
	}
	if raw := q.Get("type"); raw != "" {
		t, err := browse.ParseType(raw)
		if err != nil {
			writeError(w, "list entities", err)
			return
		}
		query.Type = t
	}
	rows, total, err := h.svc.ListEntities(r.Context(), query)
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: rows, Total: total})
}

// GetEntity handles GET /api/entities/{type}/{id}.
//
//	@Summary		Get one entity with its strongest neighbours
//	@Tags			entities
//	@Produce		json
//	@Param			type	path		string	true	"Entity type"
//	@Param			id		path		string	true	"Entity id"
//	@Success		200		{object}	EntityDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{type}/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	ref, err := entityRef(r)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	detail, err := h.svc.Entity(r.Context(), ref)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Neighbors handles GET /api/entities/{type}/{id}/neighbors.
//
//	@Summary		List entities connected to an entity
//	@Tags			graph
//	@Produce		json
//	@Param			type	path		string	true	"Entity type"
//	@Param			id		path		string	true	"Entity id"
//	@Param			limit	query		int		false	"Max neighbours"
//	@Success		200		{object}	NeighborsResponse
//	@Security		BearerAuth
//	@Router			/entities/{type}/{id}/neighbors [get]
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	ref, err := entityRef(r)
	if err != nil {
		writeError(w, "neighbors", err)
		return
	}
	nb, err := h.svc.Neighbors(r.Context(), ref, intParam(r, "limit"))
	if err != nil {
		writeError(w, "neighbors", err)
		return
	}
	writeJSON(w, http.StatusOK, NeighborsResponse{Node: ref, Neighbors: nb})
}

// DocumentMarkdown handles GET /api/documents/{id}/markdown.
//
//	@Summary		Get the Markdown source of a document
//	@Tags			entities
//	@Produce		text/markdown
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/markdown [get]
func (h *Handler) DocumentMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "document markdown", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// ListEdges handles GET /api/edges.
//
//	@Summary		List knowledge graph edges, heaviest first
//	@Tags			graph
//	@Produce		json
//	@Param			type		query		string	false	"Edge type"
//	@Param			node		query		string	false	"Endpoint as TYPE:id"
//	@Param			min_weight	query		number	false	"Minimum weight"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	EdgeListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [get]
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	et, err := browse.ParseEdgeType(q.Get("type"))
	if err != nil {
		writeError(w, "list edges", err)
		return
	}
	query := store.EdgeQuery{Type: et, Limit: intParam(r, "limit"), Offset: intParam(r, "offset")}
	if raw := q.Get("node"); raw != "" {
		if query.Node, err = browse.ParseRef(raw); err != nil {
			writeError(w, "list edges", err)
			return
		}
	}
	if raw := q.Get("min_weight"); raw != "" {
		if query.MinWeight, err = strconv.ParseFloat(raw, 64); err != nil {
			writeError(w, "list edges", apperr.ErrInvalidQuery)
			return
		}
	}
	edges, total, err := h.svc.Edges(r.Context(), query)
	if err != nil {
		writeError(w, "list edges", err)
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: edges, Total: total})
}

// ListOverlaps handles GET /api/overlaps.
//
//	@Summary		List cross-team overlaps, most confident first
//	@Tags			graph
//	@Produce		json
//	@Param			team	query		string	false	"Only overlaps involving this team"
//	@Success		200		{object}	OverlapListResponse
//	@Security		BearerAuth
//	@Router			/overlaps [get]
func (h *Handler) ListOverlaps(w http.ResponseWriter, r *http.Request) {
	overlaps, err := h.svc.Overlaps(r.Context(), r.URL.Query().Get("team"))
	if err != nil {
		writeError(w, "list overlaps", err)
		return
	}
	writeJSON(w, http.StatusOK, OverlapListResponse{Overlaps: overlaps})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entity titles and bodies
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, intParam(r, "limit"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Report handles GET /api/report.
//
//	@Summary		Get the run report of the loaded dataset
//	@Tags			run
//	@Produce		json
//	@Success		200	{object}	pipeline.Report
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		writeError(w, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Stats handles GET /api/stats.
//
//	@Summary		Count entities per type
//	@Tags			run
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, StatsResponse{Counts: counts, Total: total})
}

// Files handles GET /api/files.
//
//	@Summary		List files of the output directory
//	@Tags			run
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) Files(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Files(r.Context())
	if err != nil {
		writeError(w, "files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}
