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
)

// between returns a second-aligned instant in [from, to).
func between(r *rand.Rand, from, to time.Time) time.Time {
	span := to.Sub(from)
	if span <= time.Second {
		return from
	}
	return from.Add(time.Duration(r.Int64N(int64(span/time.Second))) * time.Second)
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 3 && i > 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func tagOf(topic string) string {
	return parser.Slug(topic)
}

// peopleByTeam groups registered people by team, registration order kept.
func peopleByTeam(reg *registry.Registry) map[string][]models.Record {
	out := make(map[string][]models.Record)
	for rec := range reg.AllOf(models.TypePerson) {
		p := rec.Payload.(models.Person)
		out[p.Team] = append(out[p.Team], rec)
	}
	return out
}

// member draws one person of team. A team nobody works in is a capacity
// error, not a team to skip.
func member(reg *registry.Registry, team string, r *rand.Rand) (models.Record, error) {
	rec, err := reg.Sample(models.TypePerson, func(rec models.Record) bool {
		return rec.Payload.(models.Person).Team == team
	}, r)
	if err != nil {
		return rec, fmt.Errorf("team %s: %w", team, err)
	}
	return rec, nil
}

// topicsFor returns shared topics plus those owned by team.
func topicsFor(reg *registry.Registry, team string) []models.Record {
	return reg.Filter(models.TypeTopic, func(rec models.Record) bool {
		t := rec.Payload.(models.Topic).Team
		return t == "" || t == team
	})
}

func ids(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func topicNames(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Payload.(models.Topic).Name
	}
	return out
}

// every reports cancellation once per n iterations.
func every(ctx context.Context, i, n int) error {
	if i%n == 0 {
		return ctx.Err()
	}
	return nil
}
