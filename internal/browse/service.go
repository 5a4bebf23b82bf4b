// Package browse answers read-only questions about a persisted dataset for
// the HTTP API and the MCP server.
package browse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/output"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/storage"
	"github.com/starford/orgsynth/internal/store"
)

const defaultNeighbors = 10

// Neighbor is an entity connected to another by an edge.
type Neighbor struct {
	Node  models.Ref  `json:"node"`
	Title string      `json:"title"`
	Edge  models.Edge `json:"edge"`
}

// EntityDetail is the full representation of an entity.
type EntityDetail struct {
	Record    models.Record `json:"record"`
	Neighbors []Neighbor    `json:"neighbors"`
}

// Service coordinates the store and the output directory.
type Service struct {
	db    store.Store
	files storage.Provider
}

// NewService creates a new browse service. files may be nil when only the
// database is available.
func NewService(db store.Store, files storage.Provider) *Service {
	return &Service{db: db, files: files}
}

// ParseType accepts an entity type name in any case.
func ParseType(s string) (models.EntityType, error) {
	t := models.EntityType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown entity type %q", apperr.ErrInvalidQuery, s)
	}
	return t, nil
}

// ParseRef parses "TYPE:id".
func ParseRef(s string) (models.Ref, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return models.Ref{}, fmt.Errorf("%w: reference %q is not TYPE:id", apperr.ErrInvalidQuery, s)
	}
	t, err := ParseType(typ)
	if err != nil {
		return models.Ref{}, err
	}
	return models.Ref{Type: t, ID: id}, nil
}

// ParseEdgeType accepts an edge type name in any case; empty matches all.
func ParseEdgeType(s string) (models.EdgeType, error) {
	if s == "" {
		return "", nil
	}
	t := models.EdgeType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown edge type %q", apperr.ErrInvalidQuery, s)
	}
	return t, nil
}

// Entity returns a record with its strongest neighbours.
func (s *Service) Entity(ctx context.Context, ref models.Ref) (*EntityDetail, error) {
	rec, err := s.db.Entity(ref)
	if err != nil {
		return nil, err
	}
	nb, err := s.Neighbors(ctx, ref, defaultNeighbors)
	if err != nil {
		return nil, err
	}
	return &EntityDetail{Record: *rec, Neighbors: nb}, nil
}

// ListEntities returns a page of entities.
func (s *Service) ListEntities(_ context.Context, q store.EntityQuery) ([]store.EntityRow, int, error) {
	if !store.ValidSort(q.Sort) {
		return nil, 0, fmt.Errorf("%w: unknown sort %q", apperr.ErrInvalidQuery, q.Sort)
	}
	return s.db.ListEntities(q)
}

// Search delegates full-text search to the store.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidQuery)
	}
	return s.db.Search(query, limit)
}

// Edges returns a page of edges.
func (s *Service) Edges(_ context.Context, q store.EdgeQuery) ([]models.Edge, int, error) {
	if q.MinWeight < 0 || q.MinWeight > 1 {
		return nil, 0, fmt.Errorf("%w: min_weight must be within [0,1]", apperr.ErrInvalidQuery)
	}
	return s.db.Edges(q)
}

// Neighbors returns the entities connected to ref, heaviest edges first.
func (s *Service) Neighbors(_ context.Context, ref models.Ref, limit int) ([]Neighbor, error) {
	if limit <= 0 {
		limit = defaultNeighbors
	}
	edges, _, err := s.db.Edges(store.EdgeQuery{Node: ref, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		other := e.Dst
		if other == ref {
			other = e.Src
		}
		n := Neighbor{Node: other, Edge: e}
		if rec, err := s.db.Entity(other); err == nil {
			n.Title = titleOf(*rec)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Overlaps returns the overlaps involving team, or all of them.
func (s *Service) Overlaps(_ context.Context, team string) ([]models.Overlap, error) {
	return s.db.Overlaps(team)
}

// Report returns the run report of the stored dataset.
func (s *Service) Report(_ context.Context) (*pipeline.Report, error) {
	return s.db.Report()
}

// Counts returns the number of entities per type.
func (s *Service) Counts(_ context.Context) (map[models.EntityType]int, error) {
	return s.db.Counts()
}

// Document returns the Markdown of a document, read from the output
// directory when one is attached.
func (s *Service) Document(_ context.Context, id string) (string, error) {
	if s.files != nil {
		data, err := s.files.Read(output.DocFile(id))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	rec, err := s.db.Entity(models.Ref{Type: models.TypeDoc, ID: id})
	if err != nil {
		return "", err
	}
	return rec.Payload.(models.Document).Content, nil
}

// Files lists the output directory.
func (s *Service) Files(_ context.Context) ([]storage.File, error) {
	if s.files == nil {
		return []storage.File{}, nil
	}
	return s.files.List("")
}

func titleOf(rec models.Record) string {
	switch p := rec.Payload.(type) {
	case models.Person:
		return p.FullName
	case models.Team:
		return p.Name
	case models.Topic:
		return p.Name
	case models.Document:
		return p.Title
	case models.Thread:
		return p.Channel
	case models.Meeting:
		return p.Title
	case models.StarterPack:
		return p.Title
	}
	return rec.ID
}
