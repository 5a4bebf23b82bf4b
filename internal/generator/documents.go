package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/parser"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

var (
	docPatterns = map[string][]string{
		"Marketing":   {"%s Campaign Results", "Competitive Analysis: %s", "Marketing Brief: %s"},
		"Product":     {"PRD: %s", "Decision Log: %s", "User Research: %s"},
		"Engineering": {"RFC: %s", "Architecture Overview: %s", "Postmortem: %s"},
		"Finance":     {"Budget Review: %s", "Forecast: %s", "Financial Impact of %s"},
		"HR":          {"Policy: %s", "People Update: %s", "Playbook: %s"},
	}
	genericPatterns = []string{"Notes on %s", "%s Overview", "Weekly Brief: %s"}
	docSections     = []string{"Background", "Findings", "Proposal", "Risks", "Next Steps", "Open Questions"}
	sentences       = []string{
		"We reviewed the latest numbers on %s with the wider group.",
		"The main open point on %s is ownership across teams.",
		"Feedback so far suggests %s needs a clearer plan for next quarter.",
		"Several customers raised %s in recent conversations.",
		"A follow-up on %s is scheduled once the data is complete.",
	}
	visibilities     = []string{"team", "company", "restricted"}
	confidentialties = []string{"public", "internal", "confidential"}
)

// Documents writes knowledge-base documents, some as version chains.
type Documents struct {
	s Settings
}

func (g *Documents) Name() string { return "documents" }

type docFrontmatter struct {
	Title   string   `yaml:"title"`
	Team    string   `yaml:"team"`
	Author  string   `yaml:"author"`
	Status  string   `yaml:"status"`
	Version int      `yaml:"version"`
	Tags    []string `yaml:"tags"`
}

func (g *Documents) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	byTeam := peopleByTeam(reg)
	teams := g.s.Teams
	if len(teams) == 0 {
		return nil
	}
	topicsByTeam := make(map[string][]models.Record)
	for _, t := range teams {
		topicsByTeam[t] = topicsFor(reg, t)
	}

	latest := g.s.End.AddDate(0, 0, -30)
	if !latest.After(g.s.Start) {
		latest = g.s.End
	}
	chains := g.s.Volumes.VersionChains
	misordered := g.s.Defects.OutOfOrderVersions
	dangling := g.s.Defects.DanglingReferences
	teamDocs := make(map[string][]string)
	lastDefect := 0

	n := 0
	for n < g.s.Volumes.Documents {
		if err := every(ctx, n, 25); err != nil {
			return err
		}
		team := rng.Pick(r, teams)
		authorRec, err := member(reg, team, r)
		if err != nil {
			return err
		}
		topics := rng.PickN(r, topicsByTeam[team], rng.Between(r, 1, 3))
		title := fmt.Sprintf(rng.Pick(r, patternsFor(team)), titleCase(topic0(topics)))
		at := between(r, g.s.Start, latest)

		versions := 1
		if chains > 0 && g.s.Volumes.Documents-n >= 2 {
			versions = min(rng.Between(r, 2, 3), g.s.Volumes.Documents-n)
			chains--
		}

		prevID := ""
		var prevAt time.Time
		for v := 1; v <= versions; v++ {
			id := docID(n)
			d := g.document(r, team, authorRec.ID, byTeam[team], topics, title, v, versions)
			if prevID != "" {
				d.PreviousVersionID = prevID
				at = prevAt.Add(time.Duration(rng.Between(r, 2, 20)) * 24 * time.Hour)
				if v == 2 && misordered > 0 {
					at = prevAt.Add(-48 * time.Hour)
					misordered--
				}
			}
			if earlierDocs := teamDocs[team]; len(earlierDocs) > 0 && r.IntN(3) == 0 {
				d.RelatedDocIDs = rng.PickN(r, earlierDocs, rng.Between(r, 1, 2))
			}
			if dangling > 0 && v == 1 && n-lastDefect >= 3 {
				if dangling%2 == 0 {
					d.RelatedDocIDs = append(d.RelatedDocIDs, fmt.Sprintf("DOC-MISSING-%d", dangling))
				} else {
					d.AuthorPersonID = fmt.Sprintf("P_MISSING_%d", dangling)
				}
				dangling--
				lastDefect = n
			}
			content, err := g.render(r, d, topics, teamDocs[team])
			if err != nil {
				return err
			}
			d.Content = content

			if err := reg.Register(models.TypeDoc, id, d, at); err != nil {
				return err
			}
			teamDocs[team] = append(teamDocs[team], id)
			prevID, prevAt = id, at
			n++
		}
	}
	return nil
}

func (g *Documents) document(r *rand.Rand, team, author string, members []models.Record, topics []models.Record, title string, v, versions int) models.Document {
	status := "final"
	switch {
	case v < versions:
		status = "draft"
	case versions == 1 && r.IntN(4) == 0:
		status = rng.Pick(r, []string{"draft", "review"})
	}

	var coAuthors []string
	if len(members) > 1 && r.IntN(2) == 0 {
		if m := rng.Pick(r, members); m.ID != author {
			coAuthors = append(coAuthors, m.ID)
		}
	}

	tags := make([]string, 0, len(topics)+1)
	for _, t := range topics {
		tags = append(tags, tagOf(t.Payload.(models.Topic).Name))
	}
	tags = append(tags, strings.ToLower(team))

	if v > 1 {
		title = fmt.Sprintf("%s (v%d)", title, v)
	}
	return models.Document{
		Title:           title,
		Team:            team,
		AuthorPersonID:  author,
		CoAuthors:       coAuthors,
		Tags:            tags,
		TopicIDs:        ids(topics),
		Status:          status,
		Visibility:      rng.Pick(r, visibilities),
		Language:        "en",
		Confidentiality: rng.Pick(r, confidentialties),
		Version:         v,
	}
}

// render writes the Markdown body: frontmatter, sections mentioning the
// topics, inline tags and an occasional wikilink to an earlier document.
func (g *Documents) render(r *rand.Rand, d models.Document, topics []models.Record, prior []string) (string, error) {
	names := topicNames(topics)
	if len(names) == 0 {
		names = []string{"general"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	for _, sec := range rng.PickN(r, docSections, rng.Between(r, 2, 4)) {
		fmt.Fprintf(&b, "## %s\n\n", sec)
		for range rng.Between(r, 1, 3) {
			fmt.Fprintf(&b, rng.Pick(r, sentences)+" ", rng.Pick(r, names))
		}
		b.WriteString("\n\n")
	}
	if len(prior) > 0 && r.IntN(3) == 0 {
		fmt.Fprintf(&b, "See also [[%s]].\n\n", rng.Pick(r, prior))
	}
	for i, n := range names {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("#" + tagOf(n))
	}
	b.WriteString("\n")

	return parser.Render(docFrontmatter{
		Title:   d.Title,
		Team:    d.Team,
		Author:  d.AuthorPersonID,
		Status:  d.Status,
		Version: d.Version,
		Tags:    d.Tags,
	}, b.String())
}

func patternsFor(team string) []string {
	if p, ok := docPatterns[team]; ok {
		return p
	}
	return genericPatterns
}

func topic0(topics []models.Record) string {
	if len(topics) == 0 {
		return "general"
	}
	return topics[0].Payload.(models.Topic).Name
}

func docID(i int) string {
	return fmt.Sprintf("DOC-%04d", i+1)
}
