package graph

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/parser"
	"github.com/starford/orgsynth/internal/registry"
)

type catalogEntry struct {
	id    string
	topic models.Topic
	terms []string
}

// occurrence is one content item matched against the topic catalog.
type occurrence struct {
	ref    models.Ref
	at     time.Time
	team   string
	owner  string
	topics []string
	links  []string
}

// index is a read-only snapshot of the registry used by all partitions.
type index struct {
	times    map[models.Ref]time.Time
	teamOf   map[models.Ref]string
	ownerOf  map[models.Ref]string
	topicsOf map[models.Ref][]string
	links    map[models.Ref][]string
	profile  map[models.Ref]map[string]struct{}
	catalog  []catalogEntry
	occ      []occurrence
	topicPos map[string]int
}

func (ix *index) has(r models.Ref) bool {
	_, ok := ix.times[r]
	return ok
}

func (ix *index) addProfile(r models.Ref, topics []string) {
	if len(topics) == 0 {
		return
	}
	set, ok := ix.profile[r]
	if !ok {
		set = make(map[string]struct{})
		ix.profile[r] = set
	}
	for _, t := range topics {
		set[t] = struct{}{}
	}
}

// similarity is the Jaccard similarity of two topic profiles.
func (ix *index) similarity(a, b models.Ref) float64 {
	pa, pb := ix.profile[a], ix.profile[b]
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}
	inter := 0
	for t := range pa {
		if _, ok := pb[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(pa)+len(pb)-inter)
}

func buildIndex(reg *registry.Registry) *index {
	ix := &index{
		times:    make(map[models.Ref]time.Time),
		teamOf:   make(map[models.Ref]string),
		ownerOf:  make(map[models.Ref]string),
		topicsOf: make(map[models.Ref][]string),
		links:    make(map[models.Ref][]string),
		profile:  make(map[models.Ref]map[string]struct{}),
		topicPos: make(map[string]int),
	}
	for _, t := range models.AllTypes {
		for rec := range reg.AllOf(t) {
			ix.times[rec.Ref()] = rec.CreatedAt
			if tp, ok := rec.Payload.(models.Teamed); ok && tp.TeamName() != "" {
				ix.teamOf[rec.Ref()] = tp.TeamName()
			}
		}
	}

	for rec := range reg.AllOf(models.TypeTopic) {
		tp := rec.Payload.(models.Topic)
		terms := []string{parser.Slug(tp.Name), parser.Slug(rec.ID)}
		for _, a := range tp.Aliases {
			terms = append(terms, parser.Slug(a))
		}
		ix.topicPos[rec.ID] = len(ix.catalog)
		ix.catalog = append(ix.catalog, catalogEntry{id: rec.ID, topic: tp, terms: terms})
		ix.addProfile(rec.Ref(), []string{rec.ID})
	}

	threadTeam := make(map[string]string)
	for rec := range reg.AllOf(models.TypeDoc) {
		d := rec.Payload.(models.Document)
		parsed := parser.Parse(d.Content)
		tags := append(slices.Clone(d.Tags), parsed.Tags...)
		ix.addOccurrence(occurrence{
			ref:    rec.Ref(),
			at:     rec.CreatedAt,
			team:   d.Team,
			owner:  d.AuthorPersonID,
			topics: ix.match(d.TopicIDs, tags, d.Title+" "+parsed.Title),
			links:  parsed.Links,
		})
	}
	for rec := range reg.AllOf(models.TypeThread) {
		th := rec.Payload.(models.Thread)
		threadTeam[rec.ID] = th.Team
		owner := ""
		if len(th.Participants) > 0 {
			owner = th.Participants[0]
		}
		ix.addOccurrence(occurrence{
			ref:    rec.Ref(),
			at:     rec.CreatedAt,
			team:   th.Team,
			owner:  owner,
			topics: ix.match(nil, th.TopicTags, th.Channel),
		})
	}
	for rec := range reg.AllOf(models.TypeMessage) {
		m := rec.Payload.(models.Message)
		team := threadTeam[m.ThreadID]
		if team != "" {
			ix.teamOf[rec.Ref()] = team
		}
		parsed := parser.Parse(m.Text)
		ix.addOccurrence(occurrence{
			ref:    rec.Ref(),
			at:     rec.CreatedAt,
			team:   team,
			owner:  m.SenderPersonID,
			topics: ix.match(nil, parsed.Tags, m.Text),
			links:  parsed.Links,
		})
	}
	for rec := range reg.AllOf(models.TypeMeeting) {
		mt := rec.Payload.(models.Meeting)
		ix.addOccurrence(occurrence{
			ref:    rec.Ref(),
			at:     rec.CreatedAt,
			team:   mt.Team,
			owner:  mt.OrganizerID,
			topics: ix.match(nil, nil, mt.Title+" "+mt.Summary),
		})
	}
	return ix
}

func (ix *index) addOccurrence(o occurrence) {
	ix.occ = append(ix.occ, o)
	if len(o.links) > 0 {
		ix.links[o.ref] = o.links
	}
	if o.owner != "" {
		ix.ownerOf[o.ref] = o.owner
	}
	if len(o.topics) == 0 {
		return
	}
	ix.topicsOf[o.ref] = o.topics
	ix.addProfile(o.ref, o.topics)
	if o.owner != "" {
		ix.addProfile(models.Ref{Type: models.TypePerson, ID: o.owner}, o.topics)
	}
	if o.team != "" {
		ix.addProfile(models.Ref{Type: models.TypeTeam, ID: o.team}, o.topics)
	}
}

// match scores every catalog topic against the explicit topic ids, tags and
// free text of an item. Topics scoring above zero are returned in catalog
// order.
func (ix *index) match(explicit, tags []string, text string) []string {
	hay := parser.NewPhrases(text)
	slugs := make([]string, 0, len(tags))
	for _, t := range tags {
		slugs = append(slugs, parser.Slug(t))
	}

	var out []string
	for _, ce := range ix.catalog {
		score := 0
		if slices.Contains(explicit, ce.id) {
			score++
		}
		for _, term := range ce.terms {
			if slices.Contains(slugs, term) {
				score++
			}
			if hay.Contains(term) {
				score++
			}
		}
		if score > 0 {
			out = append(out, ce.id)
		}
	}
	return out
}

// scoreTopics recomputes emerging scores and related topics.
func (b *Builder) scoreTopics(ix *index) []models.Record {
	raw := make([]float64, len(ix.catalog))
	co := make([]map[int]int, len(ix.catalog))
	for i := range co {
		co[i] = make(map[int]int)
	}

	end := b.opts.WindowEnd
	for _, o := range ix.occ {
		age := end.Sub(o.at)
		if age < 0 {
			age = 0
		}
		decay := math.Exp(-math.Ln2 * age.Hours() / b.opts.HalfLife.Hours())
		for _, t := range o.topics {
			i := ix.topicPos[t]
			raw[i] += decay
			for _, u := range o.topics {
				if u != t {
					co[i][ix.topicPos[u]]++
				}
			}
		}
	}

	peak := slices.Max(append(raw, 0))
	out := make([]models.Record, 0, len(ix.catalog))
	for i, ce := range ix.catalog {
		tp := ce.topic
		tp.EmergingScore = 0
		if peak > 0 {
			tp.EmergingScore = math.Round(raw[i]/peak*1e4) / 1e4
		}
		tp.RelatedTopicIDs = ix.related(co[i], b.opts.RelatedTopics)
		out = append(out, models.Record{
			Type:      models.TypeTopic,
			ID:        ce.id,
			CreatedAt: ix.times[models.Ref{Type: models.TypeTopic, ID: ce.id}],
			Payload:   tp,
		})
	}
	return out
}

func (ix *index) related(counts map[int]int, n int) []string {
	pos := make([]int, 0, len(counts))
	for p := range counts {
		pos = append(pos, p)
	}
	slices.SortFunc(pos, func(a, b int) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return a - b
	})
	if len(pos) > n {
		pos = pos[:n]
	}
	out := make([]string, 0, len(pos))
	for _, p := range pos {
		out = append(out, ix.catalog[p].id)
	}
	return out
}

// topicName resolves a configured topic phrase against the catalog.
func (ix *index) topicName(phrase string) (string, string) {
	s := parser.Slug(phrase)
	for _, ce := range ix.catalog {
		if slices.Contains(ce.terms, s) {
			return ce.id, ce.topic.Name
		}
	}
	return "", strings.TrimSpace(phrase)
}
