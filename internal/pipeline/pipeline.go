// Package pipeline drives one generation run through its phases:
// generation, graph building, bounded validation and repair, finalisation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/graph"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
	"github.com/starford/orgsynth/internal/validate"
)

// Phase is a run state.
type Phase string

const (
	PhaseInit          Phase = "INIT"
	PhaseGenerating    Phase = "GENERATING"
	PhaseGraphBuilding Phase = "GRAPH_BUILDING"
	PhaseValidating    Phase = "VALIDATING"
	PhaseRepairing     Phase = "REPAIRING"
	PhaseFinalizing    Phase = "FINALIZING"
	PhaseDone          Phase = "DONE"
	PhaseFailed        Phase = "FAILED"
	PhaseAborted       Phase = "ABORTED"
)

// Generator produces the entities of one or more types. Generators of one
// stage run concurrently and must write disjoint entity types; they may read
// any type written by an earlier stage.
type Generator interface {
	Name() string
	Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error
}

// Stage is a set of generators run concurrently.
type Stage []Generator

// Options configures a Runner.
type Options struct {
	Seed       int64
	Stages     []Stage
	Graph      graph.Options
	Validation validate.Options
	Formats    []validate.FormatValidator
}

// Transition is one recorded state change.
type Transition struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// Report summarises a run for operators and manifest writers.
type Report struct {
	Phase       Phase                     `json:"phase"`
	Seed        int64                     `json:"seed"`
	Counts      map[models.EntityType]int `json:"counts"`
	Edges       int                       `json:"edges"`
	Overlaps    int                       `json:"overlaps"`
	Warnings    int                       `json:"warnings"`
	Errors      int                       `json:"errors"`
	Repairs     int                       `json:"repairs"`
	Passes      int                       `json:"repair_passes"`
	Dropped     []dataset.Dropped         `json:"dropped"`
	Issues      []models.Issue            `json:"issues"`
	Transitions []Transition              `json:"transitions"`
	Checksum    string                    `json:"checksum"`
}

// Output is a finalized run.
type Output struct {
	Dataset *dataset.Dataset
	Report  Report
}

// Runner executes runs. A Runner is single-use.
type Runner struct {
	opts   Options
	logger *slog.Logger
	report Report
}

// New returns a Runner.
func New(opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		opts:   opts,
		logger: logger,
		report: Report{Phase: PhaseInit, Seed: opts.Seed},
	}
}

// Phase returns the current state.
func (r *Runner) Phase() Phase {
	return r.report.Phase
}

// Report returns the report so far; after a failed or aborted run it holds
// the transitions that led there.
func (r *Runner) Report() Report {
	return r.report
}

func (r *Runner) enter(p Phase) {
	r.logger.Info("run phase",
		slog.String("from", string(r.report.Phase)),
		slog.String("to", string(p)),
	)
	r.report.Transitions = append(r.report.Transitions, Transition{From: r.report.Phase, To: p})
	r.report.Phase = p
}

// checkpoint honours cancellation at a phase boundary.
func (r *Runner) checkpoint(ctx context.Context, reg *registry.Registry) error {
	if err := ctx.Err(); err != nil {
		return r.abort(reg, err)
	}
	return nil
}

func (r *Runner) abort(reg *registry.Registry, cause error) error {
	reg.Discard()
	r.enter(PhaseAborted)
	return fmt.Errorf("%w: %w", apperr.ErrAborted, cause)
}

func (r *Runner) fail(reg *registry.Registry, cause error) error {
	reg.Discard()
	r.enter(PhaseFailed)
	return cause
}

// Run executes the run. Failed and aborted runs discard all state and return
// no output. Only INIT and GENERATING fail; later errors other than
// cancellation finish the run with a residual issue.
func (r *Runner) Run(ctx context.Context) (*Output, error) {
	reg := registry.New()
	src := rng.New(r.opts.Seed)

	if err := r.checkpoint(ctx, reg); err != nil {
		return nil, err
	}
	if err := r.opts.Graph.Validate(); err != nil {
		return nil, r.fail(reg, err)
	}
	r.enter(PhaseGenerating)
	for i, stage := range r.opts.Stages {
		if err := r.runStage(ctx, reg, src, stage); err != nil {
			if ctx.Err() != nil {
				return nil, r.abort(reg, ctx.Err())
			}
			return nil, r.fail(reg, fmt.Errorf("stage %d: %w", i, err))
		}
		if reg.Broken() {
			return nil, r.fail(reg, fmt.Errorf("stage %d: %w", i, apperr.ErrDuplicateID))
		}
	}

	if err := r.checkpoint(ctx, reg); err != nil {
		return nil, err
	}
	r.enter(PhaseGraphBuilding)
	ledger := validate.NewLedger()
	g, err := graph.NewBuilder(r.opts.Graph, r.logger).Build(ctx, reg)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, r.abort(reg, ctx.Err())
	case err != nil:
		r.logger.Error("graph build failed, finalizing without a graph", slog.Any("error", err))
		g = nil
		ledger.Add(0, []models.Issue{{
			Severity: models.SeverityError,
			Kind:     models.KindInvalidEdge,
			Field:    "graph",
			Detail:   "graph build failed: " + err.Error(),
		}})
	default:
		ledger.Add(0, g.Issues)
	}

	ds := dataset.New(reg, g)
	engine := validate.New(r.opts.Validation, r.logger, r.opts.Formats...)

	for pass := 1; ; pass++ {
		if err := r.checkpoint(ctx, reg); err != nil {
			return nil, err
		}
		r.enter(PhaseValidating)
		issues := engine.Check(ds)
		if !validate.Blocking(issues) || pass > engine.MaxPasses() {
			ledger.Add(pass, issues)
			break
		}
		r.enter(PhaseRepairing)
		res := engine.Repair(ds, issues)
		ledger.Add(pass, res.Issues)
		r.report.Passes = pass
		r.logger.Info("repair pass",
			slog.Int("pass", pass),
			slog.Int("repaired", res.Repaired),
			slog.Int("dropped", len(res.Dropped)),
		)
	}

	if err := r.checkpoint(ctx, reg); err != nil {
		return nil, err
	}
	r.enter(PhaseFinalizing)
	sum, err := ds.Checksum()
	if err != nil {
		r.logger.Error("dataset checksum failed", slog.Any("error", err))
		ledger.Add(r.report.Passes, []models.Issue{{
			Severity: models.SeverityError,
			Kind:     models.KindFormat,
			Field:    "checksum",
			Detail:   err.Error(),
		}})
	}
	rep := &r.report
	rep.Counts = ds.Counts()
	rep.Edges = len(ds.Edges())
	rep.Overlaps = len(ds.Overlaps())
	rep.Warnings, rep.Errors, rep.Repairs = ledger.Tally()
	rep.Dropped = ds.Dropped()
	rep.Issues = ledger.Issues()
	rep.Checksum = sum
	if residual := ledger.Residual(); len(residual) > 0 {
		r.logger.Warn("finalizing with residual errors", slog.Int("count", len(residual)))
	}
	r.enter(PhaseDone)

	return &Output{Dataset: ds, Report: r.report}, nil
}

func (r *Runner) runStage(ctx context.Context, reg *registry.Registry, src rng.Source, stage Stage) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, gen := range stage {
		g.Go(func() error {
			if err := gen.Generate(gctx, reg, src); err != nil {
				return fmt.Errorf("%s: %w", gen.Name(), err)
			}
			r.logger.Debug("generator done", slog.String("generator", gen.Name()))
			return nil
		})
	}
	return g.Wait()
}

// IsFatal reports whether err is an integrity failure or an abort, the two
// outcomes a retry with the same settings cannot fix.
func IsFatal(err error) bool {
	return errors.Is(err, apperr.ErrDuplicateID) || errors.Is(err, apperr.ErrAborted)
}
