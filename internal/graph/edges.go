package graph

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
)

// candidate is one observation of a relation before merging.
type candidate struct {
	typ      models.EdgeType
	src, dst models.Ref
	at       time.Time
	evidence []models.Ref
	weight   float64
}

func (c candidate) key() models.EdgeKey {
	return models.EdgeKey{Type: c.typ, Src: c.src, Dst: c.dst}
}

// partition collects candidates for one slice of the registry.
type partition struct {
	ix      *index
	cands   []candidate
	dropped []models.Issue
}

// add records a candidate. Self loops are skipped, symmetric relations are
// canonicalised and candidates with an unknown endpoint become warnings.
func (p *partition) add(typ models.EdgeType, src, dst models.Ref, evidence ...models.Ref) {
	if src == dst {
		return
	}
	if typ.Symmetric() && dst.Compare(src) < 0 {
		src, dst = dst, src
	}
	for _, end := range []models.Ref{src, dst} {
		if !p.ix.has(end) {
			p.dropped = append(p.dropped, models.Issue{
				Severity: models.SeverityWarning,
				Kind:     models.KindUnresolvedEdge,
				Affected: evidence[0],
				Field:    string(typ),
				Target:   end,
				Detail:   fmt.Sprintf("%s %s -> %s: unknown endpoint %s", typ, src, dst, end),
			})
			return
		}
	}

	at := p.ix.times[src]
	for _, r := range append([]models.Ref{dst}, evidence...) {
		if t := p.ix.times[r]; t.After(at) {
			at = t
		}
	}
	p.cands = append(p.cands, candidate{typ: typ, src: src, dst: dst, at: at, evidence: evidence})
}

func person(id string) models.Ref { return models.Ref{Type: models.TypePerson, ID: id} }
func doc(id string) models.Ref    { return models.Ref{Type: models.TypeDoc, ID: id} }
func topic(id string) models.Ref  { return models.Ref{Type: models.TypeTopic, ID: id} }
func team(id string) models.Ref   { return models.Ref{Type: models.TypeTeam, ID: id} }

// candidates builds every partition concurrently and concatenates the
// results in a fixed order.
func (b *Builder) candidates(ctx context.Context, reg *registry.Registry, ix *index) ([]candidate, []models.Issue, error) {
	builders := []func(*partition, *registry.Registry){
		documentEdges,
		messageEdges,
		threadEdges,
		meetingEdges,
		eventEdges,
		topicEdges,
	}
	parts := make([]*partition, len(builders))

	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range builders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := &partition{ix: ix}
			fn(p, reg)
			parts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var cands []candidate
	var issues []models.Issue
	for _, p := range parts {
		cands = append(cands, p.cands...)
		issues = append(issues, p.dropped...)
	}
	return cands, issues, nil
}

func documentEdges(p *partition, reg *registry.Registry) {
	for rec := range reg.AllOf(models.TypeDoc) {
		d := rec.Payload.(models.Document)
		self := rec.Ref()
		author := person(d.AuthorPersonID)

		p.add(models.EdgeAuthored, author, self, self)
		for _, co := range d.CoAuthors {
			p.add(models.EdgeAuthored, person(co), self, self)
			p.add(models.EdgeWorkedWith, author, person(co), self)
		}
		if d.PreviousVersionID != "" {
			p.add(models.EdgeVersionOf, self, doc(d.PreviousVersionID), self)
			if d.Status == "final" {
				p.add(models.EdgeReplaces, self, doc(d.PreviousVersionID), self)
			}
		}
		seen := make(map[string]bool)
		for _, id := range slices.Concat(d.RelatedDocIDs, p.ix.links[self]) {
			if seen[id] {
				continue
			}
			seen[id] = true
			p.add(models.EdgeMentioned, self, doc(id), self)
		}
	}
}

func messageEdges(p *partition, reg *registry.Registry) {
	for rec := range reg.AllOf(models.TypeMessage) {
		m := rec.Payload.(models.Message)
		self := rec.Ref()
		thread := models.Ref{Type: models.TypeThread, ID: m.ThreadID}
		sender := person(m.SenderPersonID)

		for _, id := range m.DocRefs {
			p.add(models.EdgeMentioned, thread, doc(id), self)
		}
		for _, id := range p.ix.links[self] {
			p.add(models.EdgeMentioned, thread, doc(id), self)
		}
		for _, id := range m.Mentions {
			p.add(models.EdgeMentioned, thread, person(id), self)
			p.add(models.EdgeWorkedWith, sender, person(id), self)
		}
		if strings.Contains(m.Text, "?") {
			for _, t := range p.ix.topicsOf[self] {
				p.add(models.EdgeAskedAbout, sender, topic(t), self)
			}
		}
	}
}

func threadEdges(p *partition, reg *registry.Registry) {
	for rec := range reg.AllOf(models.TypeThread) {
		th := rec.Payload.(models.Thread)
		for i, a := range th.Participants {
			for _, b := range th.Participants[i+1:] {
				p.add(models.EdgeWorkedWith, person(a), person(b), rec.Ref())
			}
		}
	}
}

func meetingEdges(p *partition, reg *registry.Registry) {
	for rec := range reg.AllOf(models.TypeMeeting) {
		mt := rec.Payload.(models.Meeting)
		self := rec.Ref()
		for _, a := range mt.Attendees {
			p.add(models.EdgeWorkedWith, person(mt.OrganizerID), person(a), self)
		}
		for _, id := range mt.DocRefs {
			p.add(models.EdgeMentioned, self, doc(id), self)
		}
		for _, dep := range mt.TeamDependencies {
			p.add(models.EdgeTeamOverlap, team(mt.Team), team(dep), self)
		}
	}
}

func eventEdges(p *partition, reg *registry.Registry) {
	for rec := range reg.AllOf(models.TypeEvent) {
		ev := rec.Payload.(models.Event)
		self := rec.Ref()
		switch ev.EventType {
		case models.EventViewed, models.EventClicked:
			if ev.ResourceID != "" {
				p.add(models.EdgeViewed, person(ev.PersonID), models.Ref{Type: ev.ResourceType, ID: ev.ResourceID}, self)
			}
		case models.EventSearched:
			for _, t := range p.ix.match(nil, nil, ev.Query) {
				p.add(models.EdgeAskedAbout, person(ev.PersonID), topic(t), self)
			}
		}
	}
}

// similarPerTeam bounds the SIMILAR_TOPIC pairs drawn per topic and team pair.
const similarPerTeam = 3

func topicEdges(p *partition, _ *registry.Registry) {
	// Occurrences per topic, grouped by team in first-seen team order.
	type bucket struct {
		teams  []string
		byTeam map[string][]occurrence
	}
	buckets := make([]*bucket, len(p.ix.catalog))

	for _, o := range p.ix.occ {
		for i, a := range o.topics {
			for _, c := range o.topics[i+1:] {
				p.add(models.EdgeCoOccursWith, topic(a), topic(c), o.ref)
			}
			if o.team == "" {
				continue
			}
			pos := p.ix.topicPos[a]
			bk := buckets[pos]
			if bk == nil {
				bk = &bucket{byTeam: make(map[string][]occurrence)}
				buckets[pos] = bk
			}
			if _, ok := bk.byTeam[o.team]; !ok {
				bk.teams = append(bk.teams, o.team)
			}
			bk.byTeam[o.team] = append(bk.byTeam[o.team], o)
		}
	}

	for _, bk := range buckets {
		if bk == nil {
			continue
		}
		for i, ta := range bk.teams {
			for _, tb := range bk.teams[i+1:] {
				as, bs := latest(bk.byTeam[ta], similarPerTeam), latest(bk.byTeam[tb], similarPerTeam)
				for k := 0; k < len(as) && k < len(bs); k++ {
					p.add(models.EdgeSimilarTopic, as[k].ref, bs[k].ref, as[k].ref, bs[k].ref)
				}
				p.add(models.EdgeTeamOverlap, team(ta), team(tb), as[0].ref, bs[0].ref)
			}
		}
	}
}

// latest returns up to n occurrences, most recent first.
func latest(occ []occurrence, n int) []occurrence {
	out := make([]occurrence, 0, n)
	for i := len(occ) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, occ[i])
	}
	return out
}

// weigh scores every candidate:
// 0.4*co-occurrence + 0.3*temporal proximity + 0.3*topic similarity.
// Temporal proximity is per observation: the gap between the observation and
// the later endpoint's creation, relative to the generation window.
func (b *Builder) weigh(cands []candidate, ix *index) []candidate {
	counts := make(map[models.EdgeKey]int)
	peak := make(map[models.EdgeType]int)
	for _, c := range cands {
		k := c.key()
		counts[k]++
		if counts[k] > peak[c.typ] {
			peak[c.typ] = counts[k]
		}
	}

	window := b.opts.WindowEnd.Sub(b.opts.WindowStart).Seconds()
	for i := range cands {
		c := &cands[i]
		cooc := float64(counts[c.key()]) / float64(peak[c.typ])
		dt := c.at.Sub(later(ix.times[c.src], ix.times[c.dst])).Seconds()
		temporal := clamp01(1 - dt/window)
		semantic := ix.similarity(c.src, c.dst)
		c.weight = clamp01(0.4*clamp01(cooc) + 0.3*temporal + 0.3*semantic)
	}
	return cands
}

// merge folds candidates sharing (type, src, dst) into one edge each, in
// order of first appearance.
func (b *Builder) merge(cands []candidate) []models.Edge {
	type acc struct {
		edge models.Edge
		sum  float64
		n    int
		seen map[models.Ref]struct{}
	}
	var order []models.EdgeKey
	byKey := make(map[models.EdgeKey]*acc)

	for _, c := range cands {
		k := c.key()
		a, ok := byKey[k]
		if !ok {
			a = &acc{
				edge: models.Edge{
					ID:          stableID("edge", string(c.typ), c.src.String(), c.dst.String()),
					Type:        c.typ,
					Src:         c.src,
					Dst:         c.dst,
					FirstSeenAt: c.at,
					LastSeenAt:  c.at,
				},
				seen: make(map[models.Ref]struct{}),
			}
			byKey[k] = a
			order = append(order, k)
		}
		n := len(c.evidence)
		switch b.opts.MergePolicy {
		case MergeMax:
			a.edge.Weight = math.Max(a.edge.Weight, c.weight)
		default:
			a.sum += c.weight * float64(n)
			a.n += n
		}
		if c.at.Before(a.edge.FirstSeenAt) {
			a.edge.FirstSeenAt = c.at
		}
		if c.at.After(a.edge.LastSeenAt) {
			a.edge.LastSeenAt = c.at
		}
		for _, ev := range c.evidence {
			if _, dup := a.seen[ev]; !dup {
				a.seen[ev] = struct{}{}
				a.edge.Evidence = append(a.edge.Evidence, ev)
			}
		}
	}

	out := make([]models.Edge, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		if b.opts.MergePolicy != MergeMax && a.n > 0 {
			a.edge.Weight = clamp01(a.sum / float64(a.n))
		}
		a.edge.Weight = math.Round(a.edge.Weight*1e6) / 1e6
		out = append(out, a.edge)
	}
	return out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
