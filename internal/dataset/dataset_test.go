package dataset

import (
	"testing"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/testutil"
)

func doc(id string) models.Ref { return models.Ref{Type: models.TypeDoc, ID: id} }

func TestNewCopiesRegistry(t *testing.T) {
	ds := New(testutil.Org(t), nil)
	if n := len(ds.Records(models.TypeDoc)); n != 4 {
		t.Fatalf("docs = %d", n)
	}
	if ds.Counts()[models.TypePerson] != 3 || ds.Len() == 0 {
		t.Errorf("counts = %v", ds.Counts())
	}
	if !ds.Has(doc("D3")) || ds.Has(doc("D404")) {
		t.Error("Has")
	}
}

func TestDropReindexes(t *testing.T) {
	ds := New(testutil.Org(t), nil)
	if !ds.Drop(doc("D2"), "dangling") {
		t.Fatal("Drop returned false")
	}
	if ds.Drop(doc("D2"), "again") {
		t.Error("second Drop should report false")
	}
	rec, ok := ds.Get(doc("D4"))
	if !ok || rec.ID != "D4" {
		t.Errorf("D4 after drop = %+v, %v", rec, ok)
	}
	if got := ds.Dropped(); len(got) != 1 || got[0].Reason != "dangling" {
		t.Errorf("dropped = %+v", got)
	}
}

func TestReplace(t *testing.T) {
	ds := New(testutil.Org(t), nil)
	rec, _ := ds.Get(doc("D3"))
	d := rec.Payload.(models.Document)
	rec.Payload = d.WithoutReference("previous_version_id", "D2")
	if !ds.Replace(rec) {
		t.Fatal("Replace returned false")
	}
	got, _ := ds.Get(doc("D3"))
	if got.Payload.(models.Document).PreviousVersionID != "" {
		t.Error("replacement not stored")
	}
	if ds.Replace(models.Record{Type: models.TypeDoc, ID: "D404"}) {
		t.Error("unknown ref should not be replaced")
	}
}

func TestChecksum(t *testing.T) {
	a := New(testutil.Org(t), nil)
	b := New(testutil.Org(t), nil)
	sa, err := a.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	sb, _ := b.Checksum()
	if sa != sb {
		t.Error("same content, different checksum")
	}

	var recs []models.Record
	a.All(func(r models.Record) { recs = append(recs, r) })
	if sc, _ := FromRecords(recs, nil, nil).Checksum(); sc != sa {
		t.Error("FromRecords changed the checksum")
	}

	b.Drop(doc("D1"), "test")
	if sd, _ := b.Checksum(); sd == sa {
		t.Error("drop did not change the checksum")
	}
}
