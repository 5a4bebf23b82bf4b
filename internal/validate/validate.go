// Package validate checks a finalized dataset for dangling references,
// causal ordering violations, broken edges and content bounds, and repairs
// what it can.
package validate

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
)

// FormatValidator checks a dataset against an output format.
type FormatValidator interface {
	ValidateFormat(ds *dataset.Dataset) []models.Issue
}

// Options configures the engine.
type Options struct {
	MaxPasses int
	Limits    models.ContentLimits
}

// Engine runs checks and repairs.
type Engine struct {
	opts    Options
	formats []FormatValidator
	logger  *slog.Logger
}

// New returns an Engine. Format validators are consulted on every Check.
func New(opts Options, logger *slog.Logger, formats ...FormatValidator) *Engine {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, formats: formats, logger: logger}
}

// MaxPasses returns the repair pass bound.
func (e *Engine) MaxPasses() int {
	return e.opts.MaxPasses
}

// Check runs one read-only validation pass.
func (e *Engine) Check(ds *dataset.Dataset) []models.Issue {
	c := &collector{seen: make(map[string]bool)}
	ds.All(func(rec models.Record) {
		e.checkRecord(ds, rec, c)
	})
	e.checkEdges(ds, c)
	e.checkOverlaps(ds, c)
	for _, f := range e.formats {
		for _, is := range f.ValidateFormat(ds) {
			c.add(is)
		}
	}
	return c.issues
}

type collector struct {
	issues []models.Issue
	seen   map[string]bool
}

func (c *collector) add(is models.Issue) {
	k := is.Key()
	if c.seen[k] {
		return
	}
	c.seen[k] = true
	c.issues = append(c.issues, is)
}

func (e *Engine) checkRecord(ds *dataset.Dataset, rec models.Record, c *collector) {
	for _, fr := range rec.Payload.References() {
		if ds.Has(fr.Target) {
			continue
		}
		detail := fmt.Sprintf("%s %s does not resolve", fr.Field, fr.Target)
		if fr.Mandatory {
			detail += " (mandatory)"
		}
		c.add(models.Issue{
			Severity: models.SeverityError,
			Kind:     models.KindReference,
			Affected: rec.Ref(),
			Field:    fr.Field,
			Target:   fr.Target,
			Detail:   detail,
		})
	}

	if sq, ok := rec.Payload.(models.Sequenced); ok {
		for _, p := range sq.Predecessors() {
			earliest, ok := minCreated(ds, p)
			if ok && rec.CreatedAt.Before(earliest) {
				c.add(models.Issue{
					Severity: models.SeverityError,
					Kind:     models.KindTemporalOrder,
					Affected: rec.Ref(),
					Field:    p.Field,
					Target:   p.Target,
					Detail:   fmt.Sprintf("created %s before %s at %s", rec.CreatedAt.Format(time.RFC3339), p.Target, earliest.Format(time.RFC3339)),
				})
			}
		}
	}

	if cc, ok := rec.Payload.(models.ContentChecker); ok {
		if err := cc.CheckContent(e.opts.Limits); err != nil {
			c.add(models.Issue{
				Severity: models.SeverityWarning,
				Kind:     models.KindContentQuality,
				Affected: rec.Ref(),
				Detail:   err.Error(),
			})
		}
	}
}

// minCreated is the earliest valid creation time implied by p.
func minCreated(ds *dataset.Dataset, p models.Predecessor) (time.Time, bool) {
	target, ok := ds.Get(p.Target)
	if !ok {
		return time.Time{}, false
	}
	if p.Strict {
		return target.CreatedAt.Add(time.Second), true
	}
	return target.CreatedAt, true
}

func (e *Engine) checkEdges(ds *dataset.Dataset, c *collector) {
	for _, ed := range ds.Edges() {
		if ed.Src == ed.Dst {
			c.add(edgeIssue(ed, models.KindInvalidEdge, "src", ed.Src, "self loop"))
		}
		if math.IsNaN(ed.Weight) || ed.Weight < 0 || ed.Weight > 1 {
			c.add(edgeIssue(ed, models.KindInvalidEdge, "weight", models.Ref{}, fmt.Sprintf("weight %v outside [0,1]", ed.Weight)))
		}

		resolved := true
		for i, end := range []models.Ref{ed.Src, ed.Dst} {
			field := [2]string{"src", "dst"}[i]
			rec, ok := ds.Get(end)
			if !ok {
				resolved = false
				c.add(edgeIssue(ed, models.KindReference, field, end, "endpoint does not resolve"))
				continue
			}
			if ed.FirstSeenAt.Before(rec.CreatedAt) {
				c.add(edgeIssue(ed, models.KindTemporalOrder, "first_seen_at", end, "first seen before endpoint was created"))
			}
		}
		if resolved && ed.LastSeenAt.Before(ed.FirstSeenAt) {
			c.add(edgeIssue(ed, models.KindTemporalOrder, "last_seen_at", models.Ref{}, "last seen before first seen"))
		}
		for _, ev := range ed.Evidence {
			if !ds.Has(ev) {
				c.add(edgeIssue(ed, models.KindReference, "evidence", ev, "evidence does not resolve"))
			}
		}
	}
}

func edgeIssue(ed models.Edge, kind models.IssueKind, field string, target models.Ref, detail string) models.Issue {
	return models.Issue{
		Severity: models.SeverityError,
		Kind:     kind,
		Edge:     ed.ID,
		Field:    field,
		Target:   target,
		Detail:   fmt.Sprintf("%s %s -> %s: %s", ed.Type, ed.Src, ed.Dst, detail),
	}
}

func (e *Engine) checkOverlaps(ds *dataset.Dataset, c *collector) {
	for _, o := range ds.Overlaps() {
		issue := func(field string, target models.Ref, detail string) {
			c.add(models.Issue{
				Severity: models.SeverityError,
				Kind:     models.KindReference,
				Overlap:  o.ID,
				Field:    field,
				Target:   target,
				Detail:   fmt.Sprintf("overlap %s/%s: %s", o.Teams[0], o.Teams[1], detail),
			})
		}
		for _, t := range o.Teams {
			if r := (models.Ref{Type: models.TypeTeam, ID: t}); !ds.Has(r) {
				issue("teams", r, "team does not resolve")
			}
		}
		for _, ev := range o.Evidence {
			if !ds.Has(ev) {
				issue("evidence", ev, "evidence does not resolve")
			}
		}
		for _, p := range o.PeopleSuggested {
			if r := (models.Ref{Type: models.TypePerson, ID: p}); !ds.Has(r) {
				issue("people_suggested", r, "suggested person does not resolve")
			}
		}
	}
}
