package validate

import (
	"testing"

	"github.com/starford/orgsynth/internal/models"
)

func TestLedgerFoldsUnresolvedEdgeIntoReference(t *testing.T) {
	d1 := models.Ref{Type: models.TypeDoc, ID: "D1"}
	ghost := models.Ref{Type: models.TypePerson, ID: "p_999"}
	edge := func(field string) models.Issue {
		return models.Issue{Severity: models.SeverityWarning, Kind: models.KindUnresolvedEdge, Affected: d1, Field: field, Target: ghost}
	}
	ref := models.Issue{Severity: models.SeverityError, Kind: models.KindReference, Affected: d1, Field: "author_person_id", Target: ghost}

	l := NewLedger()
	l.Add(0, []models.Issue{edge("AUTHORED"), edge("WORKED_WITH")})
	if got := len(l.Issues()); got != 1 {
		t.Fatalf("edge warnings for one target = %d, want 1", got)
	}

	failed := ref
	failed.Kind = models.KindIntegrityRepairFailure
	failed.RepairAction = models.ActionRecordDropped
	failed.Repaired = true
	l.Add(1, []models.Issue{failed})
	l.Add(2, []models.Issue{edge("AUTHORED")})

	all := l.Issues()
	if len(all) != 1 {
		t.Fatalf("issues = %+v, want exactly one", all)
	}
	if all[0].Kind != models.KindIntegrityRepairFailure || all[0].Field != "author_person_id" || all[0].Pass != 1 {
		t.Errorf("kept %+v, want the record-level failure", all[0])
	}
	if w, e, r := l.Tally(); w != 0 || e != 1 || r != 1 {
		t.Errorf("tally = %d/%d/%d", w, e, r)
	}
}

func TestLedgerKeepsUnrelatedWarnings(t *testing.T) {
	d1 := models.Ref{Type: models.TypeDoc, ID: "D1"}
	l := NewLedger()
	l.Add(0, []models.Issue{{
		Severity: models.SeverityWarning, Kind: models.KindUnresolvedEdge, Affected: d1,
		Field: "MENTIONED", Target: models.Ref{Type: models.TypeDoc, ID: "D404"},
	}})
	l.Add(1, []models.Issue{{
		Severity: models.SeverityError, Kind: models.KindReference, Affected: d1,
		Field: "author_person_id", Target: models.Ref{Type: models.TypePerson, ID: "p_999"},
	}})
	if got := len(l.Issues()); got != 2 {
		t.Errorf("issues = %+v, want 2", l.Issues())
	}
}
