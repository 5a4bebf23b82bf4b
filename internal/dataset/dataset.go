// Package dataset holds the finalized, repairable copy of a run's registry
// together with its derived graph.
package dataset

import (
	"slices"

	"github.com/starford/orgsynth/internal/checksum"
	"github.com/starford/orgsynth/internal/graph"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
)

// Dropped is a record excluded from the dataset.
type Dropped struct {
	Ref    models.Ref `json:"ref"`
	Reason string     `json:"reason"`
}

// Dataset is a typed in-memory collection. Records keep registration order
// within their type.
type Dataset struct {
	records  map[models.EntityType][]models.Record
	index    map[models.Ref]int
	edges    []models.Edge
	overlaps []models.Overlap
	dropped  []Dropped
}

// New copies the registry and overlays the graph's recomputed topics.
func New(reg *registry.Registry, g *graph.Result) *Dataset {
	ds := &Dataset{
		records: make(map[models.EntityType][]models.Record),
		index:   make(map[models.Ref]int),
	}
	topics := make(map[string]models.Record)
	if g != nil {
		for _, rec := range g.Topics {
			topics[rec.ID] = rec
		}
		ds.edges = slices.Clone(g.Edges)
		ds.overlaps = slices.Clone(g.Overlaps)
	}
	for _, t := range models.AllTypes {
		for rec := range reg.AllOf(t) {
			if upd, ok := topics[rec.ID]; ok && t == models.TypeTopic {
				rec = upd
			}
			ds.index[rec.Ref()] = len(ds.records[t])
			ds.records[t] = append(ds.records[t], rec)
		}
	}
	return ds
}

// FromRecords builds a dataset directly; used by readers of persisted data.
func FromRecords(recs []models.Record, edges []models.Edge, overlaps []models.Overlap) *Dataset {
	ds := &Dataset{
		records:  make(map[models.EntityType][]models.Record),
		index:    make(map[models.Ref]int),
		edges:    edges,
		overlaps: overlaps,
	}
	for _, rec := range recs {
		ds.index[rec.Ref()] = len(ds.records[rec.Type])
		ds.records[rec.Type] = append(ds.records[rec.Type], rec)
	}
	return ds
}

// Records returns the records of type t in registration order.
func (d *Dataset) Records(t models.EntityType) []models.Record {
	return d.records[t]
}

// All calls fn for every record, types in output order.
func (d *Dataset) All(fn func(models.Record)) {
	for _, t := range models.AllTypes {
		for _, rec := range d.records[t] {
			fn(rec)
		}
	}
}

// Get returns the record for ref.
func (d *Dataset) Get(ref models.Ref) (models.Record, bool) {
	i, ok := d.index[ref]
	if !ok {
		return models.Record{}, false
	}
	return d.records[ref.Type][i], true
}

// Has reports whether ref resolves.
func (d *Dataset) Has(ref models.Ref) bool {
	_, ok := d.index[ref]
	return ok
}

// Replace swaps the stored record with the same ref. Unknown refs are ignored.
func (d *Dataset) Replace(rec models.Record) bool {
	i, ok := d.index[rec.Ref()]
	if !ok {
		return false
	}
	d.records[rec.Type][i] = rec
	return true
}

// Drop removes ref and remembers why.
func (d *Dataset) Drop(ref models.Ref, reason string) bool {
	i, ok := d.index[ref]
	if !ok {
		return false
	}
	recs := slices.Delete(d.records[ref.Type], i, i+1)
	d.records[ref.Type] = recs
	delete(d.index, ref)
	for j := i; j < len(recs); j++ {
		d.index[recs[j].Ref()] = j
	}
	d.dropped = append(d.dropped, Dropped{Ref: ref, Reason: reason})
	return true
}

// Dropped lists removed records in removal order.
func (d *Dataset) Dropped() []Dropped {
	return d.dropped
}

// Edges returns the graph edges.
func (d *Dataset) Edges() []models.Edge {
	return d.edges
}

// SetEdges replaces the graph edges.
func (d *Dataset) SetEdges(edges []models.Edge) {
	d.edges = edges
}

// Overlaps returns the team overlaps.
func (d *Dataset) Overlaps() []models.Overlap {
	return d.overlaps
}

// SetOverlaps replaces the team overlaps.
func (d *Dataset) SetOverlaps(o []models.Overlap) {
	d.overlaps = o
}

// Counts returns the number of records per type.
func (d *Dataset) Counts() map[models.EntityType]int {
	out := make(map[models.EntityType]int, len(d.records))
	for t, recs := range d.records {
		if len(recs) > 0 {
			out[t] = len(recs)
		}
	}
	return out
}

// Len returns the total number of records.
func (d *Dataset) Len() int {
	n := 0
	for _, recs := range d.records {
		n += len(recs)
	}
	return n
}

// Checksum fingerprints records, edges and overlaps in output order.
func (d *Dataset) Checksum() (string, error) {
	dg := checksum.NewDigest()
	var err error
	d.All(func(rec models.Record) {
		if err == nil {
			err = dg.Add(rec)
		}
	})
	if err != nil {
		return "", err
	}
	for _, e := range d.edges {
		if err := dg.Add(e); err != nil {
			return "", err
		}
	}
	for _, o := range d.overlaps {
		if err := dg.Add(o); err != nil {
			return "", err
		}
	}
	return dg.Hex(), nil
}
