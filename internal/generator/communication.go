package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

var (
	openers = []string{
		"Quick question on %s: who owns the next step?",
		"Sharing an update on %s before the sync.",
		"Has anyone looked at %s numbers this week?",
		"Heads up, %s came up again with leadership.",
	}
	replies = []string{
		"Thanks, I'll take a look.",
		"Agreed, let's pick this up tomorrow.",
		"I can pull the data on %s by Friday.",
		"Can we loop in the other team on %s?",
		"Posted notes in the doc.",
		"Not sure yet, still waiting on %s input.",
	}
	emotions    = []string{"neutral", "positive", "curious", "concerned", "excited"}
	actionItems = []string{"Draft summary", "Share dashboard", "Book follow-up", "Update tracker"}
)

// Communication writes chat threads and their messages.
type Communication struct {
	s Settings
}

func (g *Communication) Name() string { return "communication" }

func (g *Communication) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	byTeam := peopleByTeam(reg)
	teams := g.s.Teams
	if len(teams) == 0 {
		return nil
	}
	docsByTeam := make(map[string][]models.Record)
	for rec := range reg.AllOf(models.TypeDoc) {
		d := rec.Payload.(models.Document)
		docsByTeam[d.Team] = append(docsByTeam[d.Team], rec)
	}

	msgN := 0
	for i := 0; i < g.s.Volumes.Threads; i++ {
		if err := every(ctx, i, 20); err != nil {
			return err
		}
		team := rng.Pick(r, teams)
		topics := rng.PickN(r, topicsFor(reg, team), rng.Between(r, 1, 2))
		names := topicNames(topics)
		if len(names) == 0 {
			names = []string{"planning"}
		}
		// The thread starter comes first.
		starter, err := member(reg, team, r)
		if err != nil {
			return err
		}
		participants := []string{starter.ID}
		for _, p := range rng.PickN(r, byTeam[team], rng.Between(r, 1, 3)) {
			if p.ID != starter.ID {
				participants = append(participants, p.ID)
			}
		}
		if other := rng.Pick(r, teams); other != team && r.IntN(3) == 0 {
			guest, err := member(reg, other, r)
			if err != nil {
				return err
			}
			participants = append(participants, guest.ID)
		}

		threadID := fmt.Sprintf("THR-%04d", i+1)
		start := between(r, g.s.Start, g.s.End.AddDate(0, 0, -7))
		th := models.Thread{
			Channel:      "#" + strings.ToLower(team) + "-" + tagOf(names[0]),
			Team:         team,
			TopicTags:    names,
			Participants: participants,
		}
		if err := reg.Register(models.TypeThread, threadID, th, start); err != nil {
			return err
		}

		at := start
		prev := ""
		for k := range rng.Between(r, g.s.Volumes.MessagesMin, g.s.Volumes.MessagesMax) {
			msgN++
			at = at.Add(time.Duration(rng.Between(r, 2, 240)) * time.Minute)
			m := g.message(r, k, threadID, participants, names, docsByTeam[team], at)
			if prev != "" && r.IntN(3) == 0 {
				m.ReplyToID = prev
			}
			id := fmt.Sprintf("MSG-%06d", msgN)
			if err := reg.Register(models.TypeMessage, id, m, at); err != nil {
				return err
			}
			prev = id
		}
	}
	return nil
}

func (g *Communication) message(r *rand.Rand, k int, threadID string, participants, topics []string, docs []models.Record, at time.Time) models.Message {
	sender := rng.Pick(r, participants)
	topic := rng.Pick(r, topics)
	text := fmt.Sprintf(rng.Pick(r, openers), topic)
	if k > 0 {
		text = rng.Pick(r, replies)
		if strings.Contains(text, "%s") {
			text = fmt.Sprintf(text, topic)
		}
	}

	m := models.Message{
		ThreadID:       threadID,
		SenderPersonID: sender,
		Text:           text,
		Emotion:        rng.Pick(r, emotions),
	}
	if len(participants) > 1 && r.IntN(4) == 0 {
		if other := rng.Pick(r, participants); other != sender {
			m.Mentions = []string{other}
			m.Text = "@" + other + " " + m.Text
		}
	}
	if len(docs) > 0 && r.IntN(6) == 0 {
		if d := rng.Pick(r, docs); d.CreatedAt.Before(at) {
			m.DocRefs = []string{d.ID}
			m.Text += fmt.Sprintf(" See [[%s]].", d.ID)
		}
	}
	if r.IntN(8) == 0 {
		m.ActionItems = []string{rng.Pick(r, actionItems)}
	}
	return m
}
