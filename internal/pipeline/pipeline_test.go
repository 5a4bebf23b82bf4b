package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/generator"
	"github.com/starford/orgsynth/internal/graph"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
	"github.com/starford/orgsynth/internal/validate"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func settings() generator.Settings {
	s := generator.DefaultSettings()
	s.Volumes = generator.Volumes{
		People: 15, Documents: 30, VersionChains: 4, Threads: 12,
		MessagesMin: 2, MessagesMax: 5, Meetings: 6, Events: 30, MetricsMonths: 2,
	}
	return s
}

func options(s generator.Settings, seed int64) pipeline.Options {
	return pipeline.Options{
		Seed:   seed,
		Stages: generator.Stages(s),
		Graph:  graph.DefaultOptions(s.Start, s.End),
	}
}

func run(t *testing.T, opts pipeline.Options) *pipeline.Output {
	t.Helper()
	out, err := pipeline.New(opts, quiet).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

func TestSameSeedSameChecksum(t *testing.T) {
	a := run(t, options(settings(), 7))
	b := run(t, options(settings(), 7))
	if a.Report.Checksum == "" || a.Report.Checksum != b.Report.Checksum {
		t.Fatalf("checksums differ: %q vs %q", a.Report.Checksum, b.Report.Checksum)
	}
	c := run(t, options(settings(), 8))
	if c.Report.Checksum == a.Report.Checksum {
		t.Error("different seeds produced the same checksum")
	}
}

func TestTransitions(t *testing.T) {
	r := pipeline.New(options(settings(), 1), quiet)
	if r.Phase() != pipeline.PhaseInit {
		t.Fatalf("initial phase = %s", r.Phase())
	}
	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Report.Phase != pipeline.PhaseDone || r.Phase() != pipeline.PhaseDone {
		t.Fatalf("phase = %s", out.Report.Phase)
	}
	var path []pipeline.Phase
	for i, tr := range out.Report.Transitions {
		if i > 0 && tr.From != out.Report.Transitions[i-1].To {
			t.Errorf("transition %d starts at %s, previous ended at %s", i, tr.From, out.Report.Transitions[i-1].To)
		}
		path = append(path, tr.To)
	}
	want := []pipeline.Phase{pipeline.PhaseGenerating, pipeline.PhaseGraphBuilding, pipeline.PhaseValidating}
	if !slices.Equal(path[:3], want) {
		t.Errorf("path starts %v, want %v", path[:3], want)
	}
	if path[len(path)-2] != pipeline.PhaseFinalizing || path[len(path)-1] != pipeline.PhaseDone {
		t.Errorf("path ends %v", path[len(path)-2:])
	}
}

func TestReportCounts(t *testing.T) {
	s := settings()
	out := run(t, options(s, 3))
	rep := out.Report
	if rep.Counts[models.TypeDoc] != s.Volumes.Documents || rep.Counts[models.TypeTeam] != len(s.Teams) {
		t.Errorf("counts = %v", rep.Counts)
	}
	if rep.Edges == 0 || rep.Edges != len(out.Dataset.Edges()) {
		t.Errorf("edges = %d, dataset has %d", rep.Edges, len(out.Dataset.Edges()))
	}
	if rep.Overlaps != len(out.Dataset.Overlaps()) {
		t.Errorf("overlaps = %d, dataset has %d", rep.Overlaps, len(out.Dataset.Overlaps()))
	}
	if rep.Seed != 3 {
		t.Errorf("seed = %d", rep.Seed)
	}
}

func TestDefectsRepaired(t *testing.T) {
	s := settings()
	s.Defects = generator.Defects{DanglingReferences: 2, OutOfOrderVersions: 1}
	out := run(t, options(s, 5))
	rep := out.Report

	if rep.Errors == 0 || rep.Repairs == 0 || rep.Passes == 0 {
		t.Fatalf("expected repairs, report = %+v", rep)
	}
	if !slices.ContainsFunc(rep.Dropped, func(d dataset.Dropped) bool { return d.Ref.Type == models.TypeDoc }) {
		t.Errorf("document with a missing author should be dropped: %v", rep.Dropped)
	}
	if !slices.ContainsFunc(rep.Issues, func(is models.Issue) bool {
		return is.Kind == models.KindIntegrityRepairFailure && is.Field == "author_person_id"
	}) {
		t.Error("missing author should be reported as an integrity repair failure")
	}

	// The finalized dataset is clean: every reference resolves and every
	// chain is ordered.
	issues := validate.New(validate.Options{}, quiet).Check(out.Dataset)
	if validate.Blocking(issues) {
		for _, is := range issues {
			if is.IsError() {
				t.Errorf("residual %s on %s: %s", is.Kind, is.Affected, is.Detail)
			}
		}
	}
}

func TestDuplicateTeamFails(t *testing.T) {
	s := settings()
	s.Teams = []string{"Marketing", "Product", "Marketing"}
	r := pipeline.New(options(s, 1), quiet)
	out, err := r.Run(context.Background())
	if out != nil {
		t.Fatal("failed run must not return output")
	}
	if !errors.Is(err, apperr.ErrDuplicateID) || !pipeline.IsFatal(err) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if r.Phase() != pipeline.PhaseFailed {
		t.Errorf("phase = %s", r.Phase())
	}
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) Generate(context.Context, *registry.Registry, rng.Source) error {
	return errors.New("template missing")
}

func TestGeneratorErrorFails(t *testing.T) {
	s := settings()
	opts := options(s, 1)
	opts.Stages = append(opts.Stages[:1], pipeline.Stage{failing{}})
	r := pipeline.New(opts, quiet)
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if r.Phase() != pipeline.PhaseFailed {
		t.Errorf("phase = %s", r.Phase())
	}
}

func TestCancelledRunAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := pipeline.New(options(settings(), 1), quiet)
	out, err := r.Run(ctx)
	if out != nil {
		t.Fatal("aborted run must not return output")
	}
	if !errors.Is(err, apperr.ErrAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected abort, got %v", err)
	}
	want := []pipeline.Transition{{From: pipeline.PhaseInit, To: pipeline.PhaseAborted}}
	if got := r.Report().Transitions; !slices.Equal(got, want) {
		t.Errorf("transitions = %v", got)
	}
}

type seeded func(*registry.Registry) error

func (seeded) Name() string { return "seeded" }

func (f seeded) Generate(_ context.Context, reg *registry.Registry, _ rng.Source) error {
	return f(reg)
}

func TestDanglingAuthorReportedOnce(t *testing.T) {
	s := settings()
	opts := options(s, 1)
	opts.Validation = validate.Options{MaxPasses: 3}
	opts.Stages = []pipeline.Stage{{seeded(func(reg *registry.Registry) error {
		return errors.Join(
			reg.Register(models.TypeTeam, "Product", models.Team{Name: "Product"}, s.Start),
			reg.Register(models.TypePerson, "P1", models.Person{FullName: "Ada", Team: "Product", Active: true}, s.Start),
			reg.Register(models.TypeDoc, "D1", models.Document{
				Title: "Roadmap", Content: "Body.\n", Team: "Product", AuthorPersonID: "p_999", Status: "final", Version: 1,
			}, s.Start.AddDate(0, 0, 1)),
		)
	})}}

	out := run(t, opts)
	rep := out.Report
	if len(rep.Issues) != 1 {
		t.Fatalf("issues = %+v, want exactly one", rep.Issues)
	}
	is := rep.Issues[0]
	if is.Kind != models.KindIntegrityRepairFailure || is.Field != "author_person_id" || is.Affected.ID != "D1" {
		t.Errorf("unexpected issue %+v", is)
	}
	if rep.Warnings != 0 || rep.Errors != 1 || rep.Repairs != 1 {
		t.Errorf("tally = %d warnings, %d errors, %d repairs", rep.Warnings, rep.Errors, rep.Repairs)
	}
	if len(rep.Dropped) != 1 || rep.Dropped[0].Ref.ID != "D1" {
		t.Errorf("dropped = %+v", rep.Dropped)
	}
}

func TestTooFewPeopleFails(t *testing.T) {
	s := settings()
	s.Volumes.People = 2
	r := pipeline.New(options(s, 1), quiet)
	out, err := r.Run(context.Background())
	if out != nil {
		t.Fatal("failed run must not return output")
	}
	if !errors.Is(err, apperr.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if r.Phase() != pipeline.PhaseFailed {
		t.Errorf("phase = %s", r.Phase())
	}
}

func TestEmptyWindowFailsAtInit(t *testing.T) {
	opts := options(settings(), 1)
	opts.Graph.WindowEnd = opts.Graph.WindowStart
	r := pipeline.New(opts, quiet)
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	want := []pipeline.Transition{{From: pipeline.PhaseInit, To: pipeline.PhaseFailed}}
	if got := r.Report().Transitions; !slices.Equal(got, want) {
		t.Errorf("transitions = %v", got)
	}
}

// opaque is a metric payload that cannot be encoded.
type opaque struct {
	Hook func() `json:"hook"`
}

func (opaque) Kind() models.EntityType                          { return models.TypeMetric }
func (opaque) References() []models.FieldRef                    { return nil }
func (o opaque) WithoutReference(string, string) models.Payload { return o }

func TestChecksumFailureFinishesWithResidual(t *testing.T) {
	s := settings()
	opts := options(s, 1)
	opts.Stages = []pipeline.Stage{{seeded(func(reg *registry.Registry) error {
		return errors.Join(
			reg.Register(models.TypeTeam, "Product", models.Team{Name: "Product"}, s.Start),
			reg.Register(models.TypeMetric, "M1", opaque{Hook: func() {}}, s.Start),
		)
	})}}

	out := run(t, opts)
	rep := out.Report
	if rep.Phase != pipeline.PhaseDone || rep.Checksum != "" {
		t.Fatalf("phase = %s, checksum = %q", rep.Phase, rep.Checksum)
	}
	if !slices.ContainsFunc(rep.Issues, func(is models.Issue) bool {
		return is.IsError() && !is.Repaired && is.Field == "checksum"
	}) {
		t.Errorf("missing residual checksum issue: %+v", rep.Issues)
	}
	for _, tr := range rep.Transitions {
		if tr.To == pipeline.PhaseFailed {
			t.Errorf("unexpected transition %v", tr)
		}
	}
}
