package api

import (
	"github.com/starford/orgsynth/internal/browse"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/storage"
	"github.com/starford/orgsynth/internal/store"
)

// EntityDetail is the full entity response type (aliased from the domain layer).
type EntityDetail = browse.EntityDetail

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []store.EntityRow `json:"entities" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// NeighborsResponse lists the entities connected to Node.
type NeighborsResponse struct {
	Node      models.Ref        `json:"node" validate:"required"`
	Neighbors []browse.Neighbor `json:"neighbors" validate:"required"`
}

// EdgeListResponse wraps paginated edge listings.
type EdgeListResponse struct {
	Edges []models.Edge `json:"edges" validate:"required"`
	Total int           `json:"total" example:"120" validate:"required"`
}

// OverlapListResponse wraps overlap listings.
type OverlapListResponse struct {
	Overlaps []models.Overlap `json:"overlaps" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}

// StatsResponse holds entity counts.
type StatsResponse struct {
	Counts map[models.EntityType]int `json:"counts" validate:"required"`
	Total  int                       `json:"total" example:"1500" validate:"required"`
}

// FileListResponse lists output files.
type FileListResponse struct {
	Files []storage.File `json:"files" validate:"required"`
}
