package generator

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

var searchSuffixes = []string{"", " dashboard", " owner", " latest", " plan"}

// Events writes the interaction history of the configured personas: views
// of documents, clicks on threads and searches for topics.
type Events struct {
	s Settings
}

func (g *Events) Name() string { return "events" }

func (g *Events) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	actors := g.actors(reg)
	if len(actors) == 0 {
		return nil
	}
	topics := topicNames(reg.Filter(models.TypeTopic, nil))

	// Viewable resources ordered by creation so an event only ever targets
	// something that already existed.
	var resources []registry.TimelineEntry
	for _, e := range reg.TimelineBetween(g.s.Start, g.s.End) {
		if e.Record != nil && (e.Record.Type == models.TypeDoc || e.Record.Type == models.TypeThread) {
			resources = append(resources, e)
		}
	}

	for i := 0; i < g.s.Volumes.Events; i++ {
		if err := every(ctx, i, 50); err != nil {
			return err
		}
		at := between(r, g.s.Start, g.s.End)
		ev := models.Event{PersonID: rng.Pick(r, actors)}

		n := sort.Search(len(resources), func(k int) bool { return resources[k].At.After(at) })
		switch kind := r.IntN(10); {
		case kind < 3 && len(topics) > 0:
			ev.EventType = models.EventSearched
			ev.Query = rng.Pick(r, topics) + rng.Pick(r, searchSuffixes)
		case n == 0:
			continue
		default:
			res := resources[r.IntN(n)].Record
			ev.EventType = models.EventViewed
			if res.Type == models.TypeThread {
				ev.EventType = models.EventClicked
			}
			ev.ResourceType, ev.ResourceID = res.Type, res.ID
		}

		id := fmt.Sprintf("EVT-%05d", i+1)
		if err := reg.Register(models.TypeEvent, id, ev, at.Truncate(time.Second)); err != nil {
			return err
		}
	}
	return nil
}

// actors are the persona people, or the first three people when no persona
// matched.
func (g *Events) actors(reg *registry.Registry) []string {
	names := make([]string, 0, len(g.s.Personas))
	for _, p := range g.s.Personas {
		names = append(names, p.Name)
	}
	out := ids(reg.Filter(models.TypePerson, func(rec models.Record) bool {
		return slices.Contains(names, rec.Payload.(models.Person).FullName)
	}))
	if len(out) == 0 {
		all := ids(reg.Filter(models.TypePerson, nil))
		out = all[:min(3, len(all))]
	}
	return out
}
