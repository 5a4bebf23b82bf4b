package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Person is an employee.
type Person struct {
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	RoleTitle     string   `json:"role_title"`
	Team          string   `json:"team"`
	ManagerID     string   `json:"manager_id,omitempty"`
	Skills        []string `json:"skills"`
	TenureMonths  int      `json:"tenure_months"`
	Active        bool     `json:"active"`
	PreviousTeams []string `json:"previous_teams,omitempty"`
	Timezone      string   `json:"timezone"`
}

func (p Person) Kind() EntityType { return TypePerson }
func (p Person) TeamName() string { return p.Team }

func (p Person) References() []FieldRef {
	out := refs(TypeTeam, "team", true, p.Team)
	return append(out, refs(TypePerson, "manager_id", false, p.ManagerID)...)
}

func (p Person) WithoutReference(field, id string) Payload {
	switch field {
	case "manager_id":
		p.ManagerID = ""
	case "team":
		p.Team = ""
	}
	return p
}

// Team is an organisational unit; its id is the team name.
type Team struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (t Team) Kind() EntityType                     { return TypeTeam }
func (t Team) TeamName() string                     { return t.Name }
func (t Team) References() []FieldRef               { return nil }
func (t Team) WithoutReference(_, _ string) Payload { return t }

// Topic is a catalog entry scored by the graph builder.
type Topic struct {
	Name            string   `json:"name"`
	Aliases         []string `json:"aliases,omitempty"`
	EmergingScore   float64  `json:"emerging_score"`
	RelatedTopicIDs []string `json:"related_topic_ids,omitempty"`
	Team            string   `json:"team,omitempty"`
}

func (t Topic) Kind() EntityType { return TypeTopic }

func (t Topic) References() []FieldRef {
	out := refs(TypeTopic, "related_topic_ids", false, t.RelatedTopicIDs...)
	return append(out, refs(TypeTeam, "team", false, t.Team)...)
}

func (t Topic) WithoutReference(field, id string) Payload {
	switch field {
	case "related_topic_ids":
		t.RelatedTopicIDs = removeID(t.RelatedTopicIDs, id)
	case "team":
		t.Team = ""
	}
	return t
}

// Document is a knowledge-base document. Content is Markdown with YAML
// frontmatter.
type Document struct {
	Title             string   `json:"title"`
	Content           string   `json:"content"`
	Team              string   `json:"team"`
	AuthorPersonID    string   `json:"author_person_id"`
	CoAuthors         []string `json:"co_authors,omitempty"`
	Tags              []string `json:"tags"`
	TopicIDs          []string `json:"topic_ids,omitempty"`
	Status            string   `json:"status"`
	Visibility        string   `json:"visibility"`
	Language          string   `json:"language"`
	Confidentiality   string   `json:"confidentiality"`
	RelatedDocIDs     []string `json:"related_doc_ids,omitempty"`
	PreviousVersionID string   `json:"previous_version_id,omitempty"`
	Version           int      `json:"version"`
}

func (d Document) Kind() EntityType { return TypeDoc }
func (d Document) TeamName() string { return d.Team }

func (d Document) References() []FieldRef {
	out := refs(TypeTeam, "team", true, d.Team)
	out = append(out, refs(TypePerson, "author_person_id", true, d.AuthorPersonID)...)
	out = append(out, refs(TypePerson, "co_authors", false, d.CoAuthors...)...)
	out = append(out, refs(TypeTopic, "topic_ids", false, d.TopicIDs...)...)
	out = append(out, refs(TypeDoc, "related_doc_ids", false, d.RelatedDocIDs...)...)
	return append(out, refs(TypeDoc, "previous_version_id", false, d.PreviousVersionID)...)
}

func (d Document) WithoutReference(field, id string) Payload {
	switch field {
	case "team":
		d.Team = ""
	case "author_person_id":
		d.AuthorPersonID = ""
	case "co_authors":
		d.CoAuthors = removeID(d.CoAuthors, id)
	case "topic_ids":
		d.TopicIDs = removeID(d.TopicIDs, id)
	case "related_doc_ids":
		d.RelatedDocIDs = removeID(d.RelatedDocIDs, id)
	case "previous_version_id":
		d.PreviousVersionID = ""
	}
	return d
}

func (d Document) Predecessors() []Predecessor {
	if d.PreviousVersionID == "" {
		return nil
	}
	return []Predecessor{{Field: "previous_version_id", Target: Ref{Type: TypeDoc, ID: d.PreviousVersionID}, Strict: true}}
}

func (d Document) CheckContent(l ContentLimits) error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, l.MaxTitleLength)),
		validation.Field(&d.Content, validation.Required),
		validation.Field(&d.Tags, validation.Length(0, l.MaxTags)),
	)
}

// Thread is a chat channel conversation.
type Thread struct {
	Channel      string   `json:"channel"`
	Team         string   `json:"team"`
	TopicTags    []string `json:"topic_tags"`
	Participants []string `json:"participants"`
}

func (t Thread) Kind() EntityType { return TypeThread }
func (t Thread) TeamName() string { return t.Team }

func (t Thread) References() []FieldRef {
	out := refs(TypeTeam, "team", true, t.Team)
	return append(out, refs(TypePerson, "participants", false, t.Participants...)...)
}

func (t Thread) WithoutReference(field, id string) Payload {
	switch field {
	case "team":
		t.Team = ""
	case "participants":
		t.Participants = removeID(t.Participants, id)
	}
	return t
}

func (t Thread) CheckContent(l ContentLimits) error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Channel, validation.Required),
		validation.Field(&t.TopicTags, validation.Length(0, l.MaxTags)),
	)
}

// Message is a single chat message.
type Message struct {
	ThreadID       string   `json:"thread_id"`
	SenderPersonID string   `json:"sender_person_id"`
	Text           string   `json:"text"`
	Emotion        string   `json:"emotion"`
	Mentions       []string `json:"mentions,omitempty"`
	DocRefs        []string `json:"doc_refs,omitempty"`
	ReplyToID      string   `json:"reply_to_id,omitempty"`
	ActionItems    []string `json:"action_items,omitempty"`
}

func (m Message) Kind() EntityType { return TypeMessage }

func (m Message) References() []FieldRef {
	out := refs(TypeThread, "thread_id", true, m.ThreadID)
	out = append(out, refs(TypePerson, "sender_person_id", true, m.SenderPersonID)...)
	out = append(out, refs(TypePerson, "mentions", false, m.Mentions...)...)
	out = append(out, refs(TypeDoc, "doc_refs", false, m.DocRefs...)...)
	return append(out, refs(TypeMessage, "reply_to_id", false, m.ReplyToID)...)
}

func (m Message) WithoutReference(field, id string) Payload {
	switch field {
	case "thread_id":
		m.ThreadID = ""
	case "sender_person_id":
		m.SenderPersonID = ""
	case "mentions":
		m.Mentions = removeID(m.Mentions, id)
	case "doc_refs":
		m.DocRefs = removeID(m.DocRefs, id)
	case "reply_to_id":
		m.ReplyToID = ""
	}
	return m
}

func (m Message) Predecessors() []Predecessor {
	var out []Predecessor
	if m.ThreadID != "" {
		out = append(out, Predecessor{Field: "thread_id", Target: Ref{Type: TypeThread, ID: m.ThreadID}})
	}
	if m.ReplyToID != "" {
		out = append(out, Predecessor{Field: "reply_to_id", Target: Ref{Type: TypeMessage, ID: m.ReplyToID}})
	}
	return out
}

func (m Message) CheckContent(_ ContentLimits) error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Text, validation.Required),
	)
}

// Meeting is a meeting summary.
type Meeting struct {
	Title            string   `json:"title"`
	Team             string   `json:"team"`
	OrganizerID      string   `json:"organizer_id"`
	Attendees        []string `json:"attendees"`
	Summary          string   `json:"summary"`
	Decisions        []string `json:"decisions,omitempty"`
	ActionItems      []string `json:"action_items,omitempty"`
	TeamDependencies []string `json:"team_dependencies,omitempty"`
	DocRefs          []string `json:"doc_refs,omitempty"`
}

func (m Meeting) Kind() EntityType { return TypeMeeting }
func (m Meeting) TeamName() string { return m.Team }

func (m Meeting) References() []FieldRef {
	out := refs(TypeTeam, "team", true, m.Team)
	out = append(out, refs(TypePerson, "organizer_id", true, m.OrganizerID)...)
	out = append(out, refs(TypePerson, "attendees", false, m.Attendees...)...)
	out = append(out, refs(TypeTeam, "team_dependencies", false, m.TeamDependencies...)...)
	return append(out, refs(TypeDoc, "doc_refs", false, m.DocRefs...)...)
}

func (m Meeting) WithoutReference(field, id string) Payload {
	switch field {
	case "team":
		m.Team = ""
	case "organizer_id":
		m.OrganizerID = ""
	case "attendees":
		m.Attendees = removeID(m.Attendees, id)
	case "team_dependencies":
		m.TeamDependencies = removeID(m.TeamDependencies, id)
	case "doc_refs":
		m.DocRefs = removeID(m.DocRefs, id)
	}
	return m
}

func (m Meeting) CheckContent(l ContentLimits) error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required, validation.Length(1, l.MaxTitleLength)),
		validation.Field(&m.Attendees, validation.Required),
	)
}

// Event kinds.
const (
	EventViewed   = "VIEWED"
	EventSearched = "SEARCHED"
	EventClicked  = "CLICKED"
)

// Event is a user interaction.
type Event struct {
	PersonID     string     `json:"person_id"`
	EventType    string     `json:"event_type"`
	ResourceType EntityType `json:"resource_type,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	Query        string     `json:"query,omitempty"`
}

func (e Event) Kind() EntityType { return TypeEvent }

func (e Event) resource() Ref {
	return Ref{Type: e.ResourceType, ID: e.ResourceID}
}

func (e Event) References() []FieldRef {
	out := refs(TypePerson, "person_id", true, e.PersonID)
	if e.ResourceID != "" {
		out = append(out, FieldRef{Field: "resource_id", Target: e.resource(), Mandatory: true})
	}
	return out
}

func (e Event) WithoutReference(field, _ string) Payload {
	switch field {
	case "person_id":
		e.PersonID = ""
	case "resource_id":
		e.ResourceID = ""
		e.ResourceType = ""
	}
	return e
}

func (e Event) Predecessors() []Predecessor {
	if e.ResourceID == "" {
		return nil
	}
	return []Predecessor{{Field: "resource_id", Target: e.resource()}}
}

// ACL is an access control list for a resource.
type ACL struct {
	ResourceType   EntityType `json:"resource_type"`
	ResourceID     string     `json:"resource_id"`
	AllowPersonIDs []string   `json:"allow_person_ids,omitempty"`
	AllowTeams     []string   `json:"allow_teams,omitempty"`
	DenyPersonIDs  []string   `json:"deny_person_ids,omitempty"`
	Warning        bool       `json:"acl_warning"`
}

func (a ACL) Kind() EntityType { return TypeACL }

func (a ACL) References() []FieldRef {
	out := []FieldRef{{Field: "resource_id", Target: Ref{Type: a.ResourceType, ID: a.ResourceID}, Mandatory: true}}
	out = append(out, refs(TypePerson, "allow_person_ids", false, a.AllowPersonIDs...)...)
	out = append(out, refs(TypeTeam, "allow_teams", false, a.AllowTeams...)...)
	return append(out, refs(TypePerson, "deny_person_ids", false, a.DenyPersonIDs...)...)
}

func (a ACL) WithoutReference(field, id string) Payload {
	switch field {
	case "resource_id":
		a.ResourceID = ""
	case "allow_person_ids":
		a.AllowPersonIDs = removeID(a.AllowPersonIDs, id)
	case "allow_teams":
		a.AllowTeams = removeID(a.AllowTeams, id)
	case "deny_person_ids":
		a.DenyPersonIDs = removeID(a.DenyPersonIDs, id)
	}
	return a
}

// Metric is one monthly business metric of a team.
type Metric struct {
	Team   string  `json:"team"`
	Name   string  `json:"name"`
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

func (m Metric) Kind() EntityType { return TypeMetric }
func (m Metric) TeamName() string { return m.Team }

func (m Metric) References() []FieldRef {
	return refs(TypeTeam, "team", true, m.Team)
}

func (m Metric) WithoutReference(field, _ string) Payload {
	if field == "team" {
		m.Team = ""
	}
	return m
}

// StarterPack bundles onboarding resources for a team.
type StarterPack struct {
	Team    string   `json:"team"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	DocIDs  []string `json:"doc_ids"`
	Experts []string `json:"experts"`
}

func (s StarterPack) Kind() EntityType { return TypePack }
func (s StarterPack) TeamName() string { return s.Team }

func (s StarterPack) References() []FieldRef {
	out := refs(TypeTeam, "team", true, s.Team)
	out = append(out, refs(TypeDoc, "doc_ids", false, s.DocIDs...)...)
	return append(out, refs(TypePerson, "experts", false, s.Experts...)...)
}

func (s StarterPack) WithoutReference(field, id string) Payload {
	switch field {
	case "team":
		s.Team = ""
	case "doc_ids":
		s.DocIDs = removeID(s.DocIDs, id)
	case "experts":
		s.Experts = removeID(s.Experts, id)
	}
	return s
}

func (s StarterPack) CheckContent(l ContentLimits) error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required, validation.Length(1, l.MaxTitleLength)),
	)
}
