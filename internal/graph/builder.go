// Package graph derives the knowledge graph of a run: weighted edges between
// entities, topic emerging scores and cross-team overlaps.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
)

// MergePolicy selects how duplicate candidate edges are combined.
type MergePolicy string

const (
	MergeWeightedAverage MergePolicy = "weighted_average"
	MergeMax             MergePolicy = "max"
)

// MandatoryOverlap is an overlap that must be present in the output.
type MandatoryOverlap struct {
	Topic   string
	Teams   []string
	Summary string
}

// Options configures a Builder.
type Options struct {
	WindowStart      time.Time
	WindowEnd        time.Time
	HalfLife         time.Duration
	OverlapThreshold float64
	Saturation       float64
	EvidenceTopK     int
	MergePolicy      MergePolicy
	Mandatory        []MandatoryOverlap
	RelatedTopics    int
}

// DefaultOptions returns builder defaults for the given window.
func DefaultOptions(start, end time.Time) Options {
	return Options{
		WindowStart:      start,
		WindowEnd:        end,
		HalfLife:         30 * 24 * time.Hour,
		OverlapThreshold: 0.5,
		Saturation:       2,
		EvidenceTopK:     6,
		MergePolicy:      MergeWeightedAverage,
		RelatedTopics:    3,
	}
}

// Builder runs the graph derivation once per run.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if opts.RelatedTopics <= 0 {
		opts.RelatedTopics = 3
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = 30 * 24 * time.Hour
	}
	if opts.Saturation <= 0 {
		opts.Saturation = 2
	}
	if opts.EvidenceTopK <= 0 {
		opts.EvidenceTopK = 6
	}
	if opts.MergePolicy == "" {
		opts.MergePolicy = MergeWeightedAverage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: opts, logger: logger}
}

// Result is the derived graph.
type Result struct {
	Edges    []models.Edge
	Topics   []models.Record
	Overlaps []models.Overlap
	// Issues holds one UnresolvedEdge warning per dropped candidate.
	Issues []models.Issue
}

// OverlapsBetween returns every overlap between teams a and b, in either order.
func (r *Result) OverlapsBetween(a, b string) []models.Overlap {
	key := models.PairKey(a, b)
	var out []models.Overlap
	for _, o := range r.Overlaps {
		if o.Teams == key {
			out = append(out, o)
		}
	}
	return out
}

// Overlap returns the first overlap between teams a and b, in either order.
func (r *Result) Overlap(a, b string) (models.Overlap, bool) {
	all := r.OverlapsBetween(a, b)
	if len(all) == 0 {
		return models.Overlap{}, false
	}
	return all[0], true
}

// Validate rejects options no build can run with.
func (o Options) Validate() error {
	if !o.WindowEnd.After(o.WindowStart) {
		return fmt.Errorf("graph: empty temporal window %s..%s", o.WindowStart, o.WindowEnd)
	}
	return nil
}

// Build derives edges, topic scores and overlaps from the registry contents.
// Edges are attached to the registry so they appear on its timeline.
func (b *Builder) Build(ctx context.Context, reg *registry.Registry) (*Result, error) {
	if err := b.opts.Validate(); err != nil {
		return nil, err
	}

	idx := buildIndex(reg)
	cands, issues, err := b.candidates(ctx, reg, idx)
	if err != nil {
		return nil, err
	}
	edges := b.merge(b.weigh(cands, idx))

	res := &Result{
		Edges:  edges,
		Topics: b.scoreTopics(idx),
		Issues: issues,
	}
	res.Overlaps = b.overlaps(edges, idx)
	reg.AttachEdges(edges)

	b.logger.Info("graph built",
		slog.Int("edges", len(res.Edges)),
		slog.Int("topics", len(res.Topics)),
		slog.Int("overlaps", len(res.Overlaps)),
		slog.Int("unresolved", len(res.Issues)),
	)
	return res, nil
}

var idSpace = uuid.MustParse("6f1d2c9e-7a4b-4e0b-9a53-1c2d3e4f5a6b")

// stableID returns a name-based UUID for parts.
func stableID(parts ...string) string {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "|"
		}
		name += p
	}
	return uuid.NewSHA1(idSpace, []byte(name)).String()
}
