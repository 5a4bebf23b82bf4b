// Package models defines the entity, graph and issue types of a generation run.
package models

import (
	"encoding/json"
	"slices"
	"time"
)

// EntityType names a registry namespace.
type EntityType string

const (
	TypePerson  EntityType = "PERSON"
	TypeTeam    EntityType = "TEAM"
	TypeDoc     EntityType = "DOC"
	TypeTopic   EntityType = "TOPIC"
	TypeThread  EntityType = "THREAD"
	TypeMessage EntityType = "MESSAGE"
	TypeMeeting EntityType = "MEETING"
	TypeEvent   EntityType = "EVENT"
	TypeACL     EntityType = "ACL"
	TypeMetric  EntityType = "METRIC"
	TypePack    EntityType = "PACK"
)

// AllTypes lists every entity type in output order.
var AllTypes = []EntityType{
	TypeTeam, TypePerson, TypeTopic, TypeDoc, TypeThread, TypeMessage,
	TypeMeeting, TypeACL, TypeEvent, TypeMetric, TypePack,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return slices.Contains(AllTypes, t)
}

// Ref is a typed reference to a registered entity.
type Ref struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// String returns "TYPE:id".
func (r Ref) String() string {
	return string(r.Type) + ":" + r.ID
}

// IsZero reports whether the ref is unset.
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Compare orders refs by type, then id.
func (r Ref) Compare(o Ref) int {
	if r.Type != o.Type {
		if r.Type < o.Type {
			return -1
		}
		return 1
	}
	switch {
	case r.ID < o.ID:
		return -1
	case r.ID > o.ID:
		return 1
	}
	return 0
}

// FieldRef is one reference-valued field on a payload.
type FieldRef struct {
	Field     string
	Target    Ref
	Mandatory bool
}

// Predecessor is a causal dependency: the owning record must not be created
// before Target (strictly after it when Strict is set).
type Predecessor struct {
	Field  string
	Target Ref
	Strict bool
}

// Payload is the typed body of an entity record. Implementations are value
// types; WithoutReference returns a modified copy and never mutates the
// receiver.
type Payload interface {
	Kind() EntityType
	References() []FieldRef
	WithoutReference(field, id string) Payload
}

// Sequenced payloads take part in causal chains.
type Sequenced interface {
	Predecessors() []Predecessor
}

// ContentLimits bounds generator-supplied content.
type ContentLimits struct {
	MaxTags        int
	MaxTitleLength int
}

// ContentChecker payloads can check their own content bounds.
type ContentChecker interface {
	CheckContent(l ContentLimits) error
}

// Teamed payloads belong to a team.
type Teamed interface {
	TeamName() string
}

// Record is an entity as held by the registry.
type Record struct {
	Type      EntityType
	ID        string
	CreatedAt time.Time
	Payload   Payload
}

// Ref returns the record's typed reference.
func (r Record) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID}
}

// MarshalJSON flattens the record into {type, id, created_at, payload}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EntityType `json:"type"`
		ID        string     `json:"id"`
		CreatedAt time.Time  `json:"created_at"`
		Payload   Payload    `json:"payload"`
	}{r.Type, r.ID, r.CreatedAt.UTC(), r.Payload})
}

func refs(t EntityType, field string, mandatory bool, ids ...string) []FieldRef {
	out := make([]FieldRef, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		out = append(out, FieldRef{Field: field, Target: Ref{Type: t, ID: id}, Mandatory: mandatory})
	}
	return out
}

// removeID returns a new slice without id.
func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
