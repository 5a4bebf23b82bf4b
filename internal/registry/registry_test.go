package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/rng"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func person(team string) models.Person {
	return models.Person{FullName: "Test Person", Team: team, Active: true}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	if err := r.Register(models.TypePerson, "P1", person("Product"), t0); err != nil {
		t.Fatalf("Register: %v", err)
	}
	rec, err := r.Get(models.TypePerson, "P1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Payload.(models.Person).Team != "Product" {
		t.Errorf("unexpected payload: %+v", rec.Payload)
	}
	if _, err := r.Get(models.TypePerson, "P2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Get(models.TypeDoc, "P1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other namespace, got %v", err)
	}
}

func TestRegisterDuplicateMarksBroken(t *testing.T) {
	r := New()
	if err := r.Register(models.TypePerson, "P1", person("HR"), t0); err != nil {
		t.Fatal(err)
	}
	err := r.Register(models.TypePerson, "P1", person("Finance"), t0)
	if !errors.Is(err, apperr.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if !r.Broken() {
		t.Error("registry should be broken")
	}
	rec, _ := r.Get(models.TypePerson, "P1")
	if rec.Payload.(models.Person).Team != "HR" {
		t.Error("duplicate must not replace the original record")
	}
	// Same id in another namespace is fine.
	if err := r.Register(models.TypeTeam, "P1", models.Team{Name: "P1"}, t0); err != nil {
		t.Errorf("cross-namespace id: %v", err)
	}
}

func TestRegisterKindMismatch(t *testing.T) {
	r := New()
	err := r.Register(models.TypeDoc, "D1", person("HR"), t0)
	if !errors.Is(err, apperr.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if r.Broken() {
		t.Error("kind mismatch must not break the registry")
	}
}

func TestSampleCapacity(t *testing.T) {
	r := New()
	for i := range 3 {
		if err := r.Register(models.TypePerson, fmt.Sprintf("P%d", i), person("Product"), t0); err != nil {
			t.Fatal(err)
		}
	}
	inFinance := func(rec models.Record) bool { return rec.Payload.(models.Person).Team == "Finance" }
	_, err := r.Sample(models.TypePerson, inFinance, rng.New(1).Stream("s"))
	if !errors.Is(err, apperr.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if r.Count(models.TypePerson) != 3 {
		t.Error("failed sample must not change the registry")
	}
}

func TestSampleDeterministic(t *testing.T) {
	r := New()
	for i := range 20 {
		if err := r.Register(models.TypePerson, fmt.Sprintf("P%02d", i), person("Product"), t0); err != nil {
			t.Fatal(err)
		}
	}
	draw := func() []string {
		s := rng.New(99).Stream("sample")
		var ids []string
		for range 10 {
			rec, err := r.Sample(models.TypePerson, nil, s)
			if err != nil {
				t.Fatal(err)
			}
			ids = append(ids, rec.ID)
		}
		return ids
	}
	a, b := draw(), draw()
	if !slices.Equal(a, b) {
		t.Errorf("samples differ: %v vs %v", a, b)
	}
}

func TestAllOfOrderAndSnapshot(t *testing.T) {
	r := New()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		if err := r.Register(models.TypeTeam, id, models.Team{Name: id}, t0); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for rec := range r.AllOf(models.TypeTeam) {
		got = append(got, rec.ID)
		if rec.ID == "c" {
			if err := r.Register(models.TypeTeam, "late", models.Team{Name: "late"}, t0); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !slices.Equal(got, ids) {
		t.Errorf("got %v, want %v", got, ids)
	}

	// Restarting sees the newly registered record.
	got = got[:0]
	for rec := range r.AllOf(models.TypeTeam) {
		got = append(got, rec.ID)
	}
	if len(got) != 4 || got[3] != "late" {
		t.Errorf("restart: got %v", got)
	}
}

func TestConcurrentRegister(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for _, typ := range []models.EntityType{models.TypeTeam, models.TypeTopic} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				id := fmt.Sprintf("%s-%d", typ, i)
				var p models.Payload = models.Team{Name: id}
				if typ == models.TypeTopic {
					p = models.Topic{Name: id}
				}
				if err := r.Register(typ, id, p, t0); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	if r.Count(models.TypeTeam) != 100 || r.Count(models.TypeTopic) != 100 {
		t.Errorf("counts: %v", r.Counts())
	}
}

func TestTimelineBetween(t *testing.T) {
	r := New()
	mustRegister := func(id string, at time.Time) {
		t.Helper()
		if err := r.Register(models.TypeTeam, id, models.Team{Name: id}, at); err != nil {
			t.Fatal(err)
		}
	}
	mustRegister("late", t0.Add(48*time.Hour))
	mustRegister("b", t0)
	mustRegister("a", t0)
	mustRegister("outside", t0.Add(-time.Hour))
	r.AttachEdges([]models.Edge{{ID: "e1", Type: models.EdgeTeamOverlap, FirstSeenAt: t0.Add(time.Hour), LastSeenAt: t0.Add(time.Hour)}})

	entries := r.TimelineBetween(t0, t0.Add(48*time.Hour))
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.key())
	}
	want := []string{"TEAM:a", "TEAM:b", "EDGE:e1", "TEAM:late"}
	if !slices.Equal(keys, want) {
		t.Errorf("got %v, want %v", keys, want)
	}
}

func TestLookup(t *testing.T) {
	r := New()
	if err := r.Register(models.TypePerson, "P1", person("HR"), t0); err != nil {
		t.Fatal(err)
	}
	p, rec, err := Lookup[models.Person](r, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Team != "HR" || rec.ID != "P1" {
		t.Errorf("unexpected lookup result %+v %+v", p, rec)
	}
	if _, _, err := Lookup[models.Document](r, "P1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDiscard(t *testing.T) {
	r := New()
	if err := r.Register(models.TypeTeam, "HR", models.Team{Name: "HR"}, t0); err != nil {
		t.Fatal(err)
	}
	r.Discard()
	if r.Count(models.TypeTeam) != 0 {
		t.Error("discard left records behind")
	}
	if err := r.Register(models.TypeTeam, "HR", models.Team{Name: "HR"}, t0); !errors.Is(err, apperr.ErrAborted) {
		t.Errorf("expected ErrAborted after discard, got %v", err)
	}
}
