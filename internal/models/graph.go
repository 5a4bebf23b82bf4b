package models

import (
	"slices"
	"time"
)

// EdgeType is a knowledge graph relation.
type EdgeType string

const (
	EdgeViewed       EdgeType = "VIEWED"
	EdgeAuthored     EdgeType = "AUTHORED"
	EdgeMentioned    EdgeType = "MENTIONED"
	EdgeCoOccursWith EdgeType = "CO_OCCURS_WITH"
	EdgeSimilarTopic EdgeType = "SIMILAR_TOPIC"
	EdgeTeamOverlap  EdgeType = "TEAM_OVERLAP"
	EdgeReplaces     EdgeType = "REPLACES"
	EdgeVersionOf    EdgeType = "VERSION_OF"
	EdgeAskedAbout   EdgeType = "ASKED_ABOUT"
	EdgeWorkedWith   EdgeType = "WORKED_WITH"
)

// AllEdgeTypes lists every relation.
var AllEdgeTypes = []EdgeType{
	EdgeViewed, EdgeAuthored, EdgeMentioned, EdgeCoOccursWith, EdgeSimilarTopic,
	EdgeTeamOverlap, EdgeReplaces, EdgeVersionOf, EdgeAskedAbout, EdgeWorkedWith,
}

// Valid reports whether t is a known relation.
func (t EdgeType) Valid() bool {
	return slices.Contains(AllEdgeTypes, t)
}

// Symmetric reports whether the relation is undirected.
func (t EdgeType) Symmetric() bool {
	switch t {
	case EdgeCoOccursWith, EdgeSimilarTopic, EdgeTeamOverlap, EdgeWorkedWith:
		return true
	}
	return false
}

// Edge is a merged, weighted relation between two entities.
type Edge struct {
	ID          string    `json:"edge_id"`
	Type        EdgeType  `json:"edge_type"`
	Src         Ref       `json:"src"`
	Dst         Ref       `json:"dst"`
	Weight      float64   `json:"weight"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	Evidence    []Ref     `json:"evidence,omitempty"`
}

// Key identifies an edge independently of its id.
type EdgeKey struct {
	Type EdgeType
	Src  Ref
	Dst  Ref
}

// Key returns the merge key of the edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Type: e.Type, Src: e.Src, Dst: e.Dst}
}

// OverlapMeta records adjustments made to an overlap.
type OverlapMeta struct {
	Clamped       bool    `json:"clamped,omitempty"`
	RawConfidence float64 `json:"raw_confidence"`
	Note          string  `json:"note,omitempty"`
}

// Overlap is a detected cross-team collaboration opportunity.
type Overlap struct {
	ID              string      `json:"overlap_id"`
	Teams           [2]string   `json:"teams"`
	Topic           string      `json:"topic"`
	Confidence      float64     `json:"confidence"`
	Evidence        []Ref       `json:"evidence"`
	PeopleSuggested []string    `json:"people_suggested"`
	SuggestedAction string      `json:"suggested_action"`
	Summary         string      `json:"summary"`
	Mandatory       bool        `json:"mandatory"`
	Meta            OverlapMeta `json:"meta"`
}

// PairKey returns the team pair in sorted order.
func PairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
