package graph

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/starford/orgsynth/internal/models"
)

// Suggested actions keyed by minimum confidence, highest first.
var actionCatalog = []struct {
	min    float64
	action string
}{
	{0.85, "Create shared workspace"},
	{0.6, "Schedule cross-team sync"},
	{0, "Share relevant documents"},
}

func suggestAction(confidence float64) string {
	for _, a := range actionCatalog {
		if confidence >= a.min {
			return a.action
		}
	}
	return actionCatalog[len(actionCatalog)-1].action
}

type weightedRef struct {
	ref    models.Ref
	weight float64
}

// pairStats accumulates the edges linking one team pair.
type pairStats struct {
	teams     [2]string
	aggregate float64
	evidence  [2][]weightedRef
	seen      map[models.Ref]struct{}
}

func (ps *pairStats) addEvidence(ix *index, r models.Ref, w float64) {
	side := -1
	switch ix.teamOf[r] {
	case ps.teams[0]:
		side = 0
	case ps.teams[1]:
		side = 1
	}
	if side < 0 {
		return
	}
	if _, dup := ps.seen[r]; dup {
		return
	}
	ps.seen[r] = struct{}{}
	ps.evidence[side] = append(ps.evidence[side], weightedRef{ref: r, weight: w})
}

// pairOf maps an edge onto the team pair its endpoints belong to.
func pairOf(e models.Edge, ix *index) ([2]string, bool) {
	var a, b string
	switch e.Type {
	case models.EdgeTeamOverlap:
		a, b = e.Src.ID, e.Dst.ID
	case models.EdgeSimilarTopic:
		a, b = ix.teamOf[e.Src], ix.teamOf[e.Dst]
	default:
		return [2]string{}, false
	}
	if a == "" || b == "" || a == b {
		return [2]string{}, false
	}
	return models.PairKey(a, b), true
}

// overlaps aggregates SIMILAR_TOPIC and TEAM_OVERLAP edges per team pair and
// emits overlaps above threshold plus every configured mandatory overlap.
func (b *Builder) overlaps(edges []models.Edge, ix *index) []models.Overlap {
	var order [][2]string
	stats := make(map[[2]string]*pairStats)
	for _, e := range edges {
		key, ok := pairOf(e, ix)
		if !ok {
			continue
		}
		ps, ok := stats[key]
		if !ok {
			ps = &pairStats{teams: key, seen: make(map[models.Ref]struct{})}
			stats[key] = ps
			order = append(order, key)
		}
		ps.aggregate += e.Weight
		for _, ev := range e.Evidence {
			ps.addEvidence(ix, ev, e.Weight)
		}
	}
	slices.SortFunc(order, func(x, y [2]string) int {
		return cmp.Or(cmp.Compare(x[0], y[0]), cmp.Compare(x[1], y[1]))
	})

	var out []models.Overlap
	organic := make(map[[2]string]int)
	for _, key := range order {
		ps := stats[key]
		conf := b.confidence(ps.aggregate)
		if conf <= b.opts.OverlapThreshold {
			continue
		}
		evidence := b.topEvidence(ps, "", ix)
		topicName := b.dominantTopic(ps, ix)
		organic[key] = len(out)
		out = append(out, models.Overlap{
			ID:              stableID("overlap", key[0], key[1]),
			Teams:           key,
			Topic:           topicName,
			Confidence:      round4(conf),
			Evidence:        evidence,
			PeopleSuggested: peopleFor(evidence, key, ix),
			SuggestedAction: suggestAction(conf),
			Summary:         summarize(key, topicName),
			Meta:            models.OverlapMeta{RawConfidence: round4(conf)},
		})
	}

	emitted := make(map[string]bool)
	for _, m := range b.opts.Mandatory {
		topicID, topicName := ix.topicName(m.Topic)
		for i, ta := range m.Teams {
			for _, tb := range m.Teams[i+1:] {
				if ta == tb {
					continue
				}
				key := models.PairKey(ta, tb)
				if pos, ok := organic[key]; ok && out[pos].Topic == topicName {
					out[pos].Mandatory = true
					if m.Summary != "" {
						out[pos].Summary = m.Summary
					}
					continue
				}
				o := b.mandatory(key, topicID, topicName, m.Summary, stats[key], ix)
				if !emitted[o.ID] {
					emitted[o.ID] = true
					out = append(out, o)
				}
			}
		}
	}
	return out
}

func (b *Builder) mandatory(key [2]string, topicID, topicName, summary string, ps *pairStats, ix *index) models.Overlap {
	raw := 0.0
	var evidence []models.Ref
	if ps != nil {
		raw = b.confidence(ps.aggregate)
		evidence = b.topEvidence(ps, topicID, ix)
	}
	conf := raw
	meta := models.OverlapMeta{RawConfidence: round4(raw)}
	if conf < b.opts.OverlapThreshold {
		conf = b.opts.OverlapThreshold
		meta.Clamped = true
		meta.Note = fmt.Sprintf("mandatory overlap clamped from %.4f to threshold %.4f", raw, b.opts.OverlapThreshold)
	}
	if summary == "" {
		summary = summarize(key, topicName)
	}
	if evidence == nil {
		evidence = []models.Ref{}
	}
	return models.Overlap{
		ID:              stableID("overlap", key[0], key[1], topicName),
		Teams:           key,
		Topic:           topicName,
		Confidence:      round4(conf),
		Evidence:        evidence,
		PeopleSuggested: peopleFor(evidence, key, ix),
		SuggestedAction: suggestAction(conf),
		Summary:         summary,
		Mandatory:       true,
		Meta:            meta,
	}
}

func (b *Builder) confidence(aggregate float64) float64 {
	return clamp01(1 - math.Exp(-aggregate/b.opts.Saturation))
}

// topEvidence ranks each team's evidence by weight and interleaves the two
// lists so both teams are represented. A non-empty topicID restricts the
// evidence to content matching that topic when any does.
func (b *Builder) topEvidence(ps *pairStats, topicID string, ix *index) []models.Ref {
	var sides [2][]weightedRef
	for s := range 2 {
		list := ps.evidence[s]
		if topicID != "" {
			var filtered []weightedRef
			for _, w := range list {
				if slices.Contains(ix.topicsOf[w.ref], topicID) {
					filtered = append(filtered, w)
				}
			}
			if len(filtered) > 0 {
				list = filtered
			}
		}
		list = slices.Clone(list)
		slices.SortStableFunc(list, func(x, y weightedRef) int {
			switch {
			case x.weight > y.weight:
				return -1
			case x.weight < y.weight:
				return 1
			}
			return 0
		})
		sides[s] = list
	}

	out := []models.Ref{}
	for i := 0; len(out) < b.opts.EvidenceTopK; i++ {
		if i >= len(sides[0]) && i >= len(sides[1]) {
			break
		}
		for s := range 2 {
			if i < len(sides[s]) && len(out) < b.opts.EvidenceTopK {
				out = append(out, sides[s][i].ref)
			}
		}
	}
	return out
}

// dominantTopic is the topic best represented on both sides of the pair.
func (b *Builder) dominantTopic(ps *pairStats, ix *index) string {
	var counts [2]map[string]int
	for s := range 2 {
		counts[s] = make(map[string]int)
		for _, w := range ps.evidence[s] {
			for _, t := range ix.topicsOf[w.ref] {
				counts[s][t]++
			}
		}
	}
	best, bestScore := "", 0
	for _, ce := range ix.catalog {
		score := min(counts[0][ce.id], counts[1][ce.id])
		if score > bestScore {
			best, bestScore = ce.id, score
		}
	}
	if best == "" {
		return "general collaboration"
	}
	return ix.catalog[ix.topicPos[best]].topic.Name
}

// peopleFor picks up to two owners of the evidence per team.
func peopleFor(evidence []models.Ref, key [2]string, ix *index) []string {
	const perTeam = 2
	out := []string{}
	taken := make(map[string]int)
	seen := make(map[string]struct{})
	for _, ev := range evidence {
		owner, ok := ix.ownerOf[ev]
		if !ok || !ix.has(person(owner)) {
			continue
		}
		t := ix.teamOf[ev]
		if t != key[0] && t != key[1] {
			continue
		}
		if _, dup := seen[owner]; dup || taken[t] >= perTeam {
			continue
		}
		seen[owner] = struct{}{}
		taken[t]++
		out = append(out, owner)
	}
	return out
}

func summarize(key [2]string, topicName string) string {
	return fmt.Sprintf("%s and %s are both working on %s", key[0], key[1], topicName)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
