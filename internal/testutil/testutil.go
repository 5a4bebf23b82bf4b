// Package testutil provides shared fixtures: a small populated registry and
// temporary output directories.
package testutil

import (
	"testing"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/storage"
)

// Start is the first instant of the fixture window.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// End is the last instant of the fixture window.
var End = Start.AddDate(0, 3, 0)

// Day returns Start plus n days.
func Day(n int) time.Time {
	return Start.AddDate(0, 0, n)
}

// Register registers a record or fails the test.
func Register(t *testing.T, reg *registry.Registry, id string, p models.Payload, at time.Time) {
	t.Helper()
	if err := reg.Register(p.Kind(), id, p, at); err != nil {
		t.Fatalf("register %s:%s: %v", p.Kind(), id, err)
	}
}

// Org returns a registry holding three teams, one person each, two topics and
// a handful of documents, a thread and a message. Marketing and Product both
// write about customer churn; Finance writes about pricing.
func Org(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()

	for _, name := range []string{"Marketing", "Product", "Finance"} {
		Register(t, reg, name, models.Team{Name: name}, Start)
	}
	Register(t, reg, "P1", models.Person{FullName: "Ada Marsh", Team: "Marketing", Active: true}, Start)
	Register(t, reg, "P2", models.Person{FullName: "Ben Okafor", Team: "Product", Active: true}, Start)
	Register(t, reg, "P3", models.Person{FullName: "Cy Lund", Team: "Finance", Active: true}, Start)

	Register(t, reg, "TOP-CHURN", models.Topic{Name: "customer churn", Aliases: []string{"churn"}}, Start)
	Register(t, reg, "TOP-PRICING", models.Topic{Name: "pricing impact", Team: "Finance"}, Start)

	Register(t, reg, "D1", models.Document{
		Title: "Churn campaign results", Content: "---\ntitle: Churn campaign results\n---\n\nWe saw #customer-churn drop.\n",
		Team: "Marketing", AuthorPersonID: "P1", Tags: []string{"customer churn"}, Status: "final", Version: 1,
	}, Day(1))
	Register(t, reg, "D2", models.Document{
		Title: "Churn dashboard spec", Content: "Draft.\n", Team: "Product", AuthorPersonID: "P2",
		Tags: []string{"churn"}, Status: "draft", Version: 1, RelatedDocIDs: []string{"D1"},
	}, Day(2))
	Register(t, reg, "D3", models.Document{
		Title: "Churn dashboard spec", Content: "Final. See [[D1]].\n", Team: "Product", AuthorPersonID: "P2",
		CoAuthors: []string{"P1"}, Tags: []string{"churn"}, Status: "final", Version: 2, PreviousVersionID: "D2",
	}, Day(3))
	Register(t, reg, "D4", models.Document{
		Title: "Pricing impact model", Content: "Numbers.\n", Team: "Finance", AuthorPersonID: "P3",
		TopicIDs: []string{"TOP-PRICING"}, Status: "final", Version: 1,
	}, Day(4))

	Register(t, reg, "T1", models.Thread{Channel: "#product-churn", Team: "Product", TopicTags: []string{"customer churn"}, Participants: []string{"P1", "P2"}}, Day(5))
	Register(t, reg, "M1", models.Message{ThreadID: "T1", SenderPersonID: "P2", Text: "What about customer churn for Q2?", Mentions: []string{"P1"}, DocRefs: []string{"D1"}}, Day(5).Add(time.Hour))
	return reg
}

// TestOutput creates a temporary output directory with a storage provider.
func TestOutput(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
