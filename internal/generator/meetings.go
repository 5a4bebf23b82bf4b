package generator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

var (
	meetingTitles = []string{"Weekly Sync: %s", "Planning Session: %s", "Quarterly Review: %s", "Working Group: %s"}
	decisions     = []string{
		"Proceed with the proposal on %s.",
		"Revisit %s after the next data refresh.",
		"Assign a single owner for %s.",
	}
)

// Meetings writes meeting summaries, some involving dependent teams.
type Meetings struct {
	s Settings
}

func (g *Meetings) Name() string { return "meetings" }

func (g *Meetings) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	byTeam := peopleByTeam(reg)
	teams := g.s.Teams
	if len(teams) == 0 {
		return nil
	}

	for i := 0; i < g.s.Volumes.Meetings; i++ {
		if err := every(ctx, i, 10); err != nil {
			return err
		}
		team := rng.Pick(r, teams)
		at := between(r, g.s.Start, g.s.End)
		topics := topicNames(rng.PickN(r, topicsFor(reg, team), rng.Between(r, 1, 2)))
		if len(topics) == 0 {
			topics = []string{"priorities"}
		}

		organizer, err := member(reg, team, r)
		if err != nil {
			return err
		}
		attendees := ids(rng.PickN(r, byTeam[team], rng.Between(r, 2, 5)))

		var deps []string
		if len(teams) > 1 && r.IntN(3) == 0 {
			for _, d := range rng.PickN(r, teams, 2) {
				if d != team && len(deps) == 0 {
					guest, err := member(reg, d, r)
					if err != nil {
						return err
					}
					deps = append(deps, d)
					attendees = append(attendees, guest.ID)
				}
			}
		}
		attendees = slices.DeleteFunc(attendees, func(id string) bool { return id == organizer.ID })

		docRefs := ids(reg.Filter(models.TypeDoc, func(rec models.Record) bool {
			return rec.Payload.(models.Document).Team == team && rec.CreatedAt.Before(at)
		}))
		docRefs = rng.PickN(r, docRefs, rng.Between(r, 0, 2))

		m := models.Meeting{
			Title:            fmt.Sprintf(rng.Pick(r, meetingTitles), titleCase(topics[0])),
			Team:             team,
			OrganizerID:      organizer.ID,
			Attendees:        attendees,
			Summary:          fmt.Sprintf("Discussed %s with %d attendees.", joinTopics(topics), len(attendees)+1),
			Decisions:        []string{fmt.Sprintf(rng.Pick(r, decisions), topics[0])},
			ActionItems:      rng.PickN(r, actionItems, rng.Between(r, 1, 2)),
			TeamDependencies: deps,
			DocRefs:          docRefs,
		}
		id := fmt.Sprintf("MTG-%03d", i+1)
		if err := reg.Register(models.TypeMeeting, id, m, at.Truncate(time.Hour)); err != nil {
			return err
		}
	}
	return nil
}

func joinTopics(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return fmt.Sprintf("%s and %s", names[0], names[1])
}
