package models

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestRecordJSONRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	in := Record{Type: TypeDoc, ID: "D1", CreatedAt: at, Payload: Document{
		Title: "Churn", Content: "body", Team: "Product", AuthorPersonID: "P1",
		Tags: []string{"churn"}, Version: 2, PreviousVersionID: "D0",
	}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"previous_version_id":"D0"`) {
		t.Errorf("json = %s", data)
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	doc, ok := out.Payload.(Document)
	if !ok {
		t.Fatalf("payload = %T", out.Payload)
	}
	if out.Ref() != in.Ref() || !out.CreatedAt.Equal(at) || doc.PreviousVersionID != "D0" || doc.Version != 2 {
		t.Errorf("round trip = %+v", out)
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	if _, err := DecodePayload("WIDGET", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestWithoutReferenceCopies(t *testing.T) {
	m := Message{ThreadID: "T1", Mentions: []string{"P1", "P2"}}
	got := m.WithoutReference("mentions", "P1").(Message)
	if !slices.Equal(got.Mentions, []string{"P2"}) {
		t.Errorf("mentions = %v", got.Mentions)
	}
	if len(m.Mentions) != 2 || m.Mentions[0] != "P1" {
		t.Errorf("receiver mutated: %v", m.Mentions)
	}
}

func TestEventReferencesFollowResource(t *testing.T) {
	e := Event{PersonID: "P1", EventType: EventViewed, ResourceType: TypeDoc, ResourceID: "D9"}
	refs := e.References()
	if len(refs) != 2 || refs[1].Target != (Ref{Type: TypeDoc, ID: "D9"}) || !refs[1].Mandatory {
		t.Errorf("refs = %+v", refs)
	}
	if p := e.Predecessors(); len(p) != 1 || p[0].Strict {
		t.Errorf("predecessors = %+v", p)
	}
}

func TestContentLimits(t *testing.T) {
	l := ContentLimits{MaxTags: 2, MaxTitleLength: 10}
	ok := Document{Title: "Short", Content: "x", Tags: []string{"a"}}
	if err := ok.CheckContent(l); err != nil {
		t.Errorf("valid document: %v", err)
	}
	long := Document{Title: "A title that is far too long", Content: "x", Tags: []string{"a", "b", "c"}}
	if err := long.CheckContent(l); err == nil {
		t.Error("expected content error")
	}
}

func TestIssueKeyIgnoresKind(t *testing.T) {
	a := Issue{Severity: SeverityError, Kind: KindReference, Affected: Ref{Type: TypeDoc, ID: "D1"}, Field: "team"}
	b := a
	b.Kind = KindIntegrityRepairFailure
	if a.Key() != b.Key() {
		t.Error("kind should not change the key")
	}
	b.Field = "author_person_id"
	if a.Key() == b.Key() {
		t.Error("field should change the key")
	}
}

func TestRefCompare(t *testing.T) {
	refs := []Ref{{TypePerson, "P2"}, {TypeDoc, "D9"}, {TypePerson, "P1"}}
	slices.SortFunc(refs, Ref.Compare)
	want := []Ref{{TypeDoc, "D9"}, {TypePerson, "P1"}, {TypePerson, "P2"}}
	if !slices.Equal(refs, want) {
		t.Errorf("sorted = %v", refs)
	}
	if !(Ref{}).IsZero() || (Ref{TypeDoc, "D1"}).String() != "DOC:D1" {
		t.Error("zero/string helpers")
	}
}

func TestEdgeTypes(t *testing.T) {
	if !EdgeAuthored.Valid() || EdgeType("LIKES").Valid() {
		t.Error("edge type validity")
	}
	if !EntityType("DOC").Valid() || EntityType("doc").Valid() {
		t.Error("entity type validity")
	}
}
