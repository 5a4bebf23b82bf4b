// Package fixture builds finalized runs over the testutil organisation for
// packages downstream of the pipeline.
package fixture

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/graph"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/testutil"
)

// Quiet discards log output.
var Quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// Output returns testutil.Org with its graph as a finalized run with seed 42.
func Output(t *testing.T) *pipeline.Output {
	t.Helper()
	reg := testutil.Org(t)
	g, err := graph.NewBuilder(graph.DefaultOptions(testutil.Start, testutil.End), Quiet).Build(context.Background(), reg)
	if err != nil {
		t.Fatal(err)
	}
	ds := dataset.New(reg, g)
	sum, err := ds.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	return &pipeline.Output{
		Dataset: ds,
		Report: pipeline.Report{
			Phase:    pipeline.PhaseDone,
			Seed:     42,
			Counts:   ds.Counts(),
			Edges:    len(ds.Edges()),
			Overlaps: len(ds.Overlaps()),
			Checksum: sum,
			Issues:   g.Issues,
		},
	}
}
