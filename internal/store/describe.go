package store

import (
	"fmt"
	"strings"

	"github.com/starford/orgsynth/internal/models"
)

type description struct {
	title string
	body  string
	team  string
}

// describe extracts the searchable text of a record.
func describe(rec models.Record) description {
	var d description
	if t, ok := rec.Payload.(models.Teamed); ok {
		d.team = t.TeamName()
	}
	switch p := rec.Payload.(type) {
	case models.Team:
		d.title, d.body = p.Name, p.Description
	case models.Person:
		d.title = p.FullName
		d.body = p.RoleTitle + "\n" + strings.Join(p.Skills, ", ")
	case models.Topic:
		d.title, d.body = p.Name, strings.Join(p.Aliases, ", ")
		d.team = p.Team
	case models.Document:
		d.title, d.body = p.Title, p.Content
	case models.Thread:
		d.title, d.body = p.Channel, strings.Join(p.TopicTags, ", ")
	case models.Message:
		d.title, d.body = p.ThreadID, p.Text
	case models.Meeting:
		d.title = p.Title
		d.body = p.Summary + "\n" + strings.Join(p.Decisions, "\n")
	case models.ACL:
		d.title = fmt.Sprintf("%s:%s", p.ResourceType, p.ResourceID)
	case models.Event:
		d.title = string(p.EventType)
		d.body = p.Query
	case models.Metric:
		d.title = fmt.Sprintf("%s %s", p.Name, p.Period)
		d.body = fmt.Sprintf("%g %s", p.Value, p.Unit)
	case models.StarterPack:
		d.title, d.body = p.Title, p.Summary
	}
	return d
}
