package output

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/testutil"
	"github.com/starford/orgsynth/internal/testutil/fixture"
)

var quiet = fixture.Quiet

func TestWriteAndRead(t *testing.T) {
	_, fs := testutil.TestOutput(t)
	out := fixture.Output(t)
	man, err := NewManagerFor(fs, quiet).Write(context.Background(), out)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if man.Seed != 42 || man.Checksum != out.Report.Checksum {
		t.Errorf("manifest header = %d %s", man.Seed, man.Checksum)
	}
	people, ok := man.File(RecordFile(models.TypePerson))
	if !ok || people.Records != 3 || people.Type != models.TypePerson {
		t.Errorf("people entry = %+v", people)
	}
	if len(man.Teams) != 3 || man.Statistics.Total != out.Dataset.Len() {
		t.Errorf("manifest = %+v", man)
	}
	if man.DateRange == nil || !man.DateRange.Start.Equal(testutil.Start) {
		t.Errorf("date range = %+v", man.DateRange)
	}

	md, err := fs.Read(DocFile("D1"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	rec, _ := out.Dataset.Get(models.Ref{Type: models.TypeDoc, ID: "D1"})
	if string(md) != rec.Payload.(models.Document).Content {
		t.Errorf("markdown = %q", md)
	}

	b, err := Read(fs)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	sum, err := b.Dataset.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	if sum != out.Report.Checksum {
		t.Errorf("round trip checksum %s, want %s", sum, out.Report.Checksum)
	}
	if b.Report.Seed != 42 || b.Report.Phase != pipeline.PhaseDone {
		t.Errorf("report = %+v", b.Report)
	}
	m1, ok := b.Dataset.Get(models.Ref{Type: models.TypeMessage, ID: "M1"})
	if !ok || m1.Payload.(models.Message).ThreadID != "T1" {
		t.Errorf("message not restored: %+v", m1)
	}
}

func TestStaleFilesPruned(t *testing.T) {
	_, fs := testutil.TestOutput(t)
	m := NewManagerFor(fs, quiet)
	out := fixture.Output(t)
	if _, err := m.Write(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	out.Dataset.Drop(models.Ref{Type: models.TypeDoc, ID: "D4"}, "test")
	if _, err := m.Write(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Read(DocFile("D4")); err == nil {
		t.Error("markdown of a dropped document should be removed")
	}
	if _, err := fs.Read(DocFile("D1")); err != nil {
		t.Errorf("D1 markdown missing: %v", err)
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	_, fs := testutil.TestOutput(t)
	if _, err := NewManagerFor(fs, quiet).Write(context.Background(), fixture.Output(t)); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(RecordFile(models.TypePerson), []byte("{}\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(fs); !errors.Is(err, apperr.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestMissingManifest(t *testing.T) {
	_, fs := testutil.TestOutput(t)
	if _, err := Read(fs); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelledWrite(t *testing.T) {
	_, fs := testutil.TestOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewManagerFor(fs, quiet).Write(ctx, fixture.Output(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := ReadManifest(fs); err == nil {
		t.Error("an interrupted write must not leave a manifest")
	}
}

func TestFormatFindings(t *testing.T) {
	recs := []models.Record{
		{Type: models.TypePerson, ID: "P 9", CreatedAt: testutil.Start, Payload: models.Person{FullName: "Spacey"}},
		{Type: models.TypePerson, ID: "P10", CreatedAt: testutil.Start, Payload: models.Person{FullName: "Ok", Email: "not-an-email"}},
		{Type: models.TypeDoc, ID: "D1", CreatedAt: testutil.Start, Payload: models.Document{Title: "x", Content: "plain"}},
	}
	issues := Format{}.ValidateFormat(dataset.FromRecords(recs, nil, nil))
	if len(issues) != 3 {
		t.Fatalf("issues = %+v", issues)
	}
	if !issues[0].IsError() || issues[0].Affected.ID != "P 9" || issues[0].Field != "id" {
		t.Errorf("bad id issue = %+v", issues[0])
	}
	for _, is := range issues[1:] {
		if is.IsError() || is.Kind != models.KindFormat {
			t.Errorf("expected format warning, got %+v", is)
		}
	}
}
