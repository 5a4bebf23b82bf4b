//go:build sqlite_fts5

package store

import (
	"strings"
	"testing"

	"github.com/starford/orgsynth/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities_fts`).Scan(&count); err != nil {
		t.Fatalf("entities_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db, _ := saved(t)
	results, err := db.Search("dashboard", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected D2 and D3, got %+v", results)
	}
	for _, r := range results {
		if r.Type != models.TypeDoc || !strings.HasPrefix(r.Title, "Churn dashboard") {
			t.Errorf("unexpected hit %+v", r)
		}
	}
}

func TestFTS5_SaveReplacesIndex(t *testing.T) {
	db := testDB(t)
	ds, rep := fixtureData(t)
	_ = db.Save(ds, rep)
	ds.Drop(models.Ref{Type: models.TypeDoc, ID: "D4"}, "test")
	_ = db.Save(ds, rep)

	results, _ := db.Search("pricing", 10)
	for _, r := range results {
		if r.ID == "D4" {
			t.Error("dropped document still in FTS index")
		}
	}
}
