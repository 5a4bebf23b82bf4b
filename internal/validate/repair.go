package validate

import (
	"log/slog"
	"slices"

	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
)

// RepairResult summarises one repair pass.
type RepairResult struct {
	// Issues are the input issues with repair outcome filled in.
	Issues   []models.Issue
	Repaired int
	Dropped  []dataset.Dropped
}

// Repair applies the repair policy to the errors in issues. Warnings pass
// through untouched. Dangling optional references are removed from their
// record; a dangling mandatory reference drops the record and is re-tagged as
// IntegrityRepairFailure. Timestamps are clamped to the earliest valid value.
// Anything else that cannot be fixed drops the affected record.
func (e *Engine) Repair(ds *dataset.Dataset, issues []models.Issue) RepairResult {
	res := RepairResult{Issues: slices.Clone(issues)}
	before := len(ds.Dropped())
	edgesDrop := make(map[string]bool)
	overlapsDrop := make(map[string]bool)
	temporal := false

	for i := range res.Issues {
		is := &res.Issues[i]
		if !is.IsError() || is.Repaired {
			continue
		}
		switch {
		case is.Edge != "":
			e.repairEdge(ds, is, edgesDrop)
		case is.Overlap != "":
			e.repairOverlap(ds, is, overlapsDrop)
		case is.Kind == models.KindTemporalOrder:
			temporal = true
			is.RepairAction = models.ActionTimeClamped
			is.Repaired = true
		case is.Kind == models.KindReference:
			e.repairReference(ds, is)
		default:
			e.dropRecord(ds, is, is.Detail)
		}
		if is.Repaired {
			res.Repaired++
		}
	}

	if temporal {
		clampTimes(ds)
	}
	if len(edgesDrop) > 0 {
		ds.SetEdges(slices.DeleteFunc(slices.Clone(ds.Edges()), func(ed models.Edge) bool { return edgesDrop[ed.ID] }))
	}
	if len(overlapsDrop) > 0 {
		ds.SetOverlaps(slices.DeleteFunc(slices.Clone(ds.Overlaps()), func(o models.Overlap) bool { return overlapsDrop[o.ID] }))
	}
	res.Dropped = slices.Clone(ds.Dropped()[before:])
	return res
}

func (e *Engine) repairReference(ds *dataset.Dataset, is *models.Issue) {
	rec, ok := ds.Get(is.Affected)
	if !ok {
		// Dropped earlier in this pass.
		is.RepairAction = models.ActionRecordDropped
		is.Repaired = true
		return
	}
	mandatory := false
	for _, fr := range rec.Payload.References() {
		if fr.Field == is.Field && fr.Target == is.Target {
			mandatory = fr.Mandatory
			break
		}
	}
	if mandatory {
		is.Kind = models.KindIntegrityRepairFailure
		e.dropRecord(ds, is, "mandatory reference "+is.Field+" to "+is.Target.String()+" does not resolve")
		return
	}
	rec.Payload = rec.Payload.WithoutReference(is.Field, is.Target.ID)
	ds.Replace(rec)
	is.RepairAction = models.ActionFieldRemoved
	is.Repaired = true
}

func (e *Engine) dropRecord(ds *dataset.Dataset, is *models.Issue, reason string) {
	if is.Affected.IsZero() {
		return
	}
	if ds.Drop(is.Affected, reason) {
		e.logger.Warn("record dropped",
			slog.String("ref", is.Affected.String()),
			slog.String("reason", reason),
		)
	}
	is.RepairAction = models.ActionRecordDropped
	is.Repaired = true
}

func (e *Engine) repairEdge(ds *dataset.Dataset, is *models.Issue, drop map[string]bool) {
	switch {
	case is.Kind == models.KindTemporalOrder:
		clampEdge(ds, is.Edge)
		is.RepairAction = models.ActionTimeClamped
	case is.Kind == models.KindReference && is.Field == "evidence":
		edges := slices.Clone(ds.Edges())
		for i := range edges {
			if edges[i].ID == is.Edge {
				edges[i].Evidence = slices.DeleteFunc(slices.Clone(edges[i].Evidence), func(r models.Ref) bool { return r == is.Target })
			}
		}
		ds.SetEdges(edges)
		is.RepairAction = models.ActionEvidencePrune
	default:
		drop[is.Edge] = true
		is.RepairAction = models.ActionEdgeDropped
	}
	is.Repaired = true
}

func (e *Engine) repairOverlap(ds *dataset.Dataset, is *models.Issue, drop map[string]bool) {
	overlaps := slices.Clone(ds.Overlaps())
	for i := range overlaps {
		o := &overlaps[i]
		if o.ID != is.Overlap {
			continue
		}
		switch is.Field {
		case "evidence":
			o.Evidence = slices.DeleteFunc(slices.Clone(o.Evidence), func(r models.Ref) bool { return r == is.Target })
			is.RepairAction = models.ActionEvidencePrune
		case "people_suggested":
			o.PeopleSuggested = slices.DeleteFunc(slices.Clone(o.PeopleSuggested), func(p string) bool { return p == is.Target.ID })
			is.RepairAction = models.ActionFieldRemoved
		default:
			drop[o.ID] = true
			is.RepairAction = models.ActionRecordDropped
		}
	}
	ds.SetOverlaps(overlaps)
	is.Repaired = true
}

// clampTimes moves every record forward to the earliest time its
// predecessors allow, then fixes edge windows. Records are visited in output
// order and registration order so a whole chain settles in one sweep.
func clampTimes(ds *dataset.Dataset) {
	for _, t := range models.AllTypes {
		for _, rec := range ds.Records(t) {
			sq, ok := rec.Payload.(models.Sequenced)
			if !ok {
				continue
			}
			at := rec.CreatedAt
			for _, p := range sq.Predecessors() {
				if earliest, ok := minCreated(ds, p); ok && at.Before(earliest) {
					at = earliest
				}
			}
			if !at.Equal(rec.CreatedAt) {
				rec.CreatedAt = at
				ds.Replace(rec)
			}
		}
	}
	edges := ds.Edges()
	for i := range edges {
		clampWindow(ds, &edges[i])
	}
}

func clampEdge(ds *dataset.Dataset, id string) {
	edges := ds.Edges()
	for i := range edges {
		if edges[i].ID == id {
			clampWindow(ds, &edges[i])
		}
	}
}

func clampWindow(ds *dataset.Dataset, ed *models.Edge) {
	for _, end := range []models.Ref{ed.Src, ed.Dst} {
		if rec, ok := ds.Get(end); ok && ed.FirstSeenAt.Before(rec.CreatedAt) {
			ed.FirstSeenAt = rec.CreatedAt
		}
	}
	if ed.LastSeenAt.Before(ed.FirstSeenAt) {
		ed.LastSeenAt = ed.FirstSeenAt
	}
}
