// Package generator produces the entities of a synthetic organisation from
// templates. Each generator owns its entity types and draws randomness from
// its own labelled stream.
package generator

import (
	"time"

	"github.com/starford/orgsynth/internal/pipeline"
)

// Volumes are target entity counts.
type Volumes struct {
	People        int
	Documents     int
	VersionChains int
	Threads       int
	MessagesMin   int
	MessagesMax   int
	Meetings      int
	Events        int
	MetricsMonths int
}

// TopicSpec is one catalog entry.
type TopicSpec struct {
	Name    string
	Aliases []string
	Team    string
}

// Persona is a person created first and used for interaction events.
type Persona struct {
	Name string
	Role string
	Team string
}

// Defects injects known inconsistencies so the repair engine has work.
type Defects struct {
	DanglingReferences int
	OutOfOrderVersions int
}

// Settings drive all generators.
type Settings struct {
	CompanyName string
	Teams       []string
	Topics      []TopicSpec
	Personas    []Persona
	Start       time.Time
	End         time.Time
	Volumes     Volumes
	Defects     Defects
}

// DefaultTeams are the five departments of the default organisation.
var DefaultTeams = []string{"Marketing", "Product", "Engineering", "Finance", "HR"}

// DefaultPersonas are the people whose activity is tracked as events.
var DefaultPersonas = []Persona{
	{Name: "Maya Chen", Role: "Product Manager", Team: "Product"},
	{Name: "Rahul Sharma", Role: "Marketing Analyst", Team: "Marketing"},
	{Name: "Priya Patel", Role: "New Hire", Team: "Product"},
}

// DefaultTopics is the topic catalog: shared topics, team topics and
// emerging trends.
func DefaultTopics() []TopicSpec {
	out := []TopicSpec{
		{Name: "customer churn", Aliases: []string{"churn", "retention"}},
		{Name: "onboarding performance", Aliases: []string{"onboarding"}},
		{Name: "pricing impact", Aliases: []string{"pricing"}},
		{Name: "hiring freeze"},
		{Name: "policy update"},
	}
	for _, name := range []string{
		"user engagement", "quarterly planning", "system performance", "data analytics",
		"mobile app", "api integration", "security framework", "cloud migration",
		"feature rollout", "market expansion", "customer feedback", "product roadmap",
		"revenue growth", "cost optimization", "process improvement",
	} {
		out = append(out, TopicSpec{Name: name})
	}
	teamTopics := map[string][]string{
		"Marketing":   {"campaign optimization", "brand awareness", "lead generation", "conversion rates"},
		"Product":     {"user research", "feature prioritization", "a/b testing", "feature adoption"},
		"Engineering": {"system architecture", "deployment automation", "technical debt", "monitoring"},
		"Finance":     {"budget planning", "financial forecasting", "expense management", "revenue tracking"},
		"HR":          {"employee engagement", "talent acquisition", "performance reviews", "compensation"},
	}
	for _, team := range DefaultTeams {
		for _, name := range teamTopics[team] {
			out = append(out, TopicSpec{Name: name, Team: team})
		}
	}
	for _, name := range []string{"ai integration", "remote work", "data privacy compliance"} {
		out = append(out, TopicSpec{Name: name})
	}
	return out
}

// DefaultSettings mirrors the default configuration file.
func DefaultSettings() Settings {
	return Settings{
		CompanyName: "TechNova Inc",
		Teams:       DefaultTeams,
		Topics:      DefaultTopics(),
		Personas:    DefaultPersonas,
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC),
		Volumes: Volumes{
			People:        25,
			Documents:     160,
			VersionChains: 12,
			Threads:       220,
			MessagesMin:   8,
			MessagesMax:   14,
			Meetings:      30,
			Events:        120,
			MetricsMonths: 18,
		},
	}
}

// Stages returns the generators grouped so each stage only reads what
// earlier stages wrote.
func Stages(s Settings) []pipeline.Stage {
	return []pipeline.Stage{
		{&Organization{s: s}},
		{&Topics{s: s}},
		{&Documents{s: s}},
		{&Communication{s: s}, &Meetings{s: s}, &Metrics{s: s}},
		{&Permissions{s: s}, &Events{s: s}, &Packs{s: s}},
	}
}
