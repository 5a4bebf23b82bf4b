// Package registry holds every entity of a generation run. Records are
// append-only; each entity type lives in its own namespace guarded by its own
// lock so generators writing different types never contend.
package registry

import (
	"cmp"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/models"
)

type namespace struct {
	mu      sync.RWMutex
	byID    map[string]int
	records []models.Record
}

// snapshot returns the records registered so far. The returned slice is never
// written to again: appends past its length reallocate or write beyond it.
func (n *namespace) snapshot() []models.Record {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.records[:len(n.records):len(n.records)]
}

// Registry is the shared entity store of one run.
type Registry struct {
	mu        sync.Mutex
	spaces    map[models.EntityType]*namespace
	discarded bool

	edgeMu sync.RWMutex
	edges  []models.Edge

	broken atomic.Bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{spaces: make(map[models.EntityType]*namespace)}
}

func (r *Registry) space(t models.EntityType, create bool) (*namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.discarded {
		return nil, apperr.ErrAborted
	}
	ns, ok := r.spaces[t]
	if !ok && create {
		ns = &namespace{byID: make(map[string]int)}
		r.spaces[t] = ns
	}
	return ns, nil
}

// Register adds a record. A duplicate (type, id) pair marks the registry
// broken and returns apperr.ErrDuplicateID.
func (r *Registry) Register(t models.EntityType, id string, payload models.Payload, createdAt time.Time) error {
	if !t.Valid() || id == "" || payload == nil {
		return fmt.Errorf("%w: %s:%q", apperr.ErrInvalidRecord, t, id)
	}
	if payload.Kind() != t {
		return fmt.Errorf("%w: payload kind %s registered as %s", apperr.ErrInvalidRecord, payload.Kind(), t)
	}
	ns, err := r.space(t, true)
	if err != nil {
		return err
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.byID[id]; ok {
		r.broken.Store(true)
		return fmt.Errorf("%w: %s:%s", apperr.ErrDuplicateID, t, id)
	}
	ns.byID[id] = len(ns.records)
	ns.records = append(ns.records, models.Record{Type: t, ID: id, CreatedAt: createdAt.UTC(), Payload: payload})
	return nil
}

// Get returns the record registered under (t, id).
func (r *Registry) Get(t models.EntityType, id string) (models.Record, error) {
	ns, err := r.space(t, false)
	if err != nil {
		return models.Record{}, err
	}
	if ns != nil {
		ns.mu.RLock()
		defer ns.mu.RUnlock()
		if i, ok := ns.byID[id]; ok {
			return ns.records[i], nil
		}
	}
	return models.Record{}, fmt.Errorf("%w: %s:%s", apperr.ErrNotFound, t, id)
}

// Has reports whether (t, id) is registered.
func (r *Registry) Has(ref models.Ref) bool {
	_, err := r.Get(ref.Type, ref.ID)
	return err == nil
}

// Sample picks uniformly among the records of type t matching pred (nil
// matches all), in registration order. The choice depends only on the
// candidates and rnd, so a dedicated stream gives reproducible picks.
func (r *Registry) Sample(t models.EntityType, pred func(models.Record) bool, rnd *rand.Rand) (models.Record, error) {
	candidates := r.Filter(t, pred)
	if len(candidates) == 0 {
		return models.Record{}, fmt.Errorf("%w: no %s candidates", apperr.ErrCapacity, t)
	}
	return candidates[rnd.IntN(len(candidates))], nil
}

// Filter returns every record of type t matching pred in registration order.
func (r *Registry) Filter(t models.EntityType, pred func(models.Record) bool) []models.Record {
	var out []models.Record
	for rec := range r.AllOf(t) {
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// AllOf yields the records of type t in registration order. Each iteration
// sees the records registered at the moment it started.
func (r *Registry) AllOf(t models.EntityType) iter.Seq[models.Record] {
	return func(yield func(models.Record) bool) {
		ns, err := r.space(t, false)
		if err != nil || ns == nil {
			return
		}
		for _, rec := range ns.snapshot() {
			if !yield(rec) {
				return
			}
		}
	}
}

// Count returns the number of records of type t.
func (r *Registry) Count(t models.EntityType) int {
	ns, err := r.space(t, false)
	if err != nil || ns == nil {
		return 0
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.records)
}

// Counts returns record counts for every type with at least one record.
func (r *Registry) Counts() map[models.EntityType]int {
	out := make(map[models.EntityType]int)
	for _, t := range r.Types() {
		out[t] = r.Count(t)
	}
	return out
}

// Types lists the populated entity types in output order.
func (r *Registry) Types() []models.EntityType {
	var out []models.EntityType
	for _, t := range models.AllTypes {
		if r.Count(t) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// AttachEdges makes edges visible to TimelineBetween.
func (r *Registry) AttachEdges(edges []models.Edge) {
	r.edgeMu.Lock()
	defer r.edgeMu.Unlock()
	r.edges = append(r.edges, edges...)
}

// Edges returns the attached edges.
func (r *Registry) Edges() []models.Edge {
	r.edgeMu.RLock()
	defer r.edgeMu.RUnlock()
	return slices.Clone(r.edges)
}

// Broken reports whether a registry invariant was violated.
func (r *Registry) Broken() bool {
	return r.broken.Load()
}

// Discard drops all state. Later calls behave as on an aborted run.
func (r *Registry) Discard() {
	r.mu.Lock()
	r.spaces = make(map[models.EntityType]*namespace)
	r.discarded = true
	r.mu.Unlock()

	r.edgeMu.Lock()
	r.edges = nil
	r.edgeMu.Unlock()
}

// Lookup is a typed Get.
func Lookup[T models.Payload](r *Registry, id string) (T, models.Record, error) {
	var zero T
	rec, err := r.Get(zero.Kind(), id)
	if err != nil {
		return zero, rec, err
	}
	p, ok := rec.Payload.(T)
	if !ok {
		return zero, rec, fmt.Errorf("%w: %s:%s has payload %T", apperr.ErrInvalidRecord, rec.Type, id, rec.Payload)
	}
	return p, rec, nil
}

// TimelineEntry is one record or edge on the timeline.
type TimelineEntry struct {
	At     time.Time
	Record *models.Record
	Edge   *models.Edge
}

func (e TimelineEntry) key() string {
	if e.Record != nil {
		return e.Record.Ref().String()
	}
	return "EDGE:" + e.Edge.ID
}

// TimelineBetween returns records (by CreatedAt) and attached edges (by
// FirstSeenAt) within [from, to], ordered by time then reference.
func (r *Registry) TimelineBetween(from, to time.Time) []TimelineEntry {
	var out []TimelineEntry
	in := func(at time.Time) bool { return !at.Before(from) && !at.After(to) }

	for _, t := range models.AllTypes {
		for rec := range r.AllOf(t) {
			if in(rec.CreatedAt) {
				out = append(out, TimelineEntry{At: rec.CreatedAt, Record: &rec})
			}
		}
	}
	for _, e := range r.Edges() {
		if in(e.FirstSeenAt) {
			out = append(out, TimelineEntry{At: e.FirstSeenAt, Edge: &e})
		}
	}

	slices.SortStableFunc(out, func(a, b TimelineEntry) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return cmp.Compare(a.key(), b.key())
	})
	return out
}
