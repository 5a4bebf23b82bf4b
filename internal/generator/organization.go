package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

var (
	firstNames = []string{
		"Alex", "Sarah", "David", "Lisa", "Michael", "Jennifer", "James", "Maria",
		"Robert", "Linda", "William", "Patricia", "John", "Elena", "Joseph", "Jessica",
		"Thomas", "Susan", "Daniel", "Nancy", "Matthew", "Grace", "Anthony", "Helen",
	}
	lastNames = []string{
		"Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez",
		"Martinez", "Lopez", "Wilson", "Anderson", "Taylor", "Moore", "Jackson", "Lee",
		"Perez", "Thompson", "White", "Harris", "Clark", "Lewis", "Walker", "Young",
	}
	roles = map[string][]string{
		"Marketing":   {"Marketing Manager", "Marketing Analyst", "Content Strategist", "Brand Manager", "Growth Marketer"},
		"Product":     {"Product Manager", "Senior Product Manager", "Product Analyst", "UX Designer", "Product Director"},
		"Engineering": {"Software Engineer", "Senior Software Engineer", "DevOps Engineer", "Engineering Manager", "Tech Lead"},
		"Finance":     {"Financial Analyst", "Finance Manager", "Controller", "Budget Analyst", "Finance Director"},
		"HR":          {"HR Manager", "HR Business Partner", "Recruiter", "People Operations Specialist", "HR Director"},
	}
	genericRoles = []string{"Analyst", "Specialist", "Coordinator", "Team Manager"}
	skills       = map[string][]string{
		"Marketing":   {"SEO/SEM", "Content Strategy", "Campaign Management", "Analytics", "Market Research", "Email Marketing"},
		"Product":     {"Product Strategy", "User Research", "Roadmap Planning", "A/B Testing", "SQL", "Wireframing"},
		"Engineering": {"Go", "Kubernetes", "SQL", "System Design", "CI/CD", "Observability", "AWS"},
		"Finance":     {"Financial Modeling", "Forecasting", "Budgeting", "Excel", "Compliance", "Cost Management"},
		"HR":          {"Talent Acquisition", "Employee Relations", "HR Analytics", "Compensation", "Recruiting"},
	}
	genericSkills = []string{"Communication", "Project Management", "Data Analysis", "Stakeholder Management"}
	timezones     = []string{"America/Los_Angeles", "America/New_York", "Europe/London", "America/Chicago"}
)

// Organization creates teams and people, then assigns a manager per team.
type Organization struct {
	s Settings
}

func (g *Organization) Name() string { return "organization" }

func (g *Organization) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	if len(g.s.Teams) == 0 {
		return fmt.Errorf("%w: no teams configured", apperr.ErrCapacity)
	}
	for _, team := range g.s.Teams {
		desc := fmt.Sprintf("%s team at %s", team, g.s.CompanyName)
		if err := reg.Register(models.TypeTeam, team, models.Team{Name: team, Description: desc}, g.s.Start); err != nil {
			return err
		}
	}

	type draft struct {
		id     string
		person models.Person
	}
	var people []draft
	used := make(map[string]bool)
	domain := strings.ToLower(strings.Join(strings.Fields(strings.TrimSuffix(g.s.CompanyName, " Inc")), "")) + ".com"

	newPerson := func(name, role, team string) models.Person {
		pool := skills[team]
		if len(pool) == 0 {
			pool = genericSkills
		}
		tenure := rng.Between(r, 12, 60)
		if role == "New Hire" {
			tenure = rng.Between(r, 1, 3)
		}
		parts := strings.Fields(strings.ToLower(name))
		return models.Person{
			FullName:     name,
			Email:        strings.Join(parts, ".") + "@" + domain,
			RoleTitle:    role,
			Team:         team,
			Skills:       rng.PickN(r, pool, rng.Between(r, 3, 5)),
			TenureMonths: tenure,
			Active:       true,
			Timezone:     rng.Pick(r, timezones),
		}
	}

	staffed := make(map[string]bool)
	for _, p := range g.s.Personas {
		used[p.Name] = true
		staffed[p.Team] = true
		people = append(people, draft{id: personID(len(people)), person: newPerson(p.Name, p.Role, p.Team)})
	}
	// Teams without a persona are staffed first, then people rotate.
	var unstaffed []string
	for _, t := range g.s.Teams {
		if !staffed[t] {
			unstaffed = append(unstaffed, t)
		}
	}
	for i := len(people); i < g.s.Volumes.People; i++ {
		if err := every(ctx, i, 50); err != nil {
			return err
		}
		team := g.s.Teams[i%len(g.s.Teams)]
		if len(unstaffed) > 0 {
			team, unstaffed = unstaffed[0], unstaffed[1:]
		}
		name := ""
		for attempt := 0; attempt < 20; attempt++ {
			name = rng.Pick(r, firstNames) + " " + rng.Pick(r, lastNames)
			if !used[name] {
				break
			}
		}
		if used[name] {
			name = fmt.Sprintf("%s %d", name, i)
		}
		used[name] = true
		pool := roles[team]
		if len(pool) == 0 {
			pool = genericRoles
		}
		p := newPerson(name, rng.Pick(r, pool), team)
		if r.IntN(10) == 0 && len(g.s.Teams) > 1 {
			prev := g.s.Teams[(i+1)%len(g.s.Teams)]
			p.PreviousTeams = []string{prev}
		}
		people = append(people, draft{id: personID(i), person: p})
	}

	if len(unstaffed) > 0 {
		return fmt.Errorf("%w: %d people leave %d of %d teams empty (%s)",
			apperr.ErrCapacity, g.s.Volumes.People, len(unstaffed), len(g.s.Teams), strings.Join(unstaffed, ", "))
	}

	// The first manager-like role in each team manages the rest of it.
	managers := make(map[string]string)
	for _, d := range people {
		if _, ok := managers[d.person.Team]; ok {
			continue
		}
		if isManager(d.person.RoleTitle) {
			managers[d.person.Team] = d.id
		}
	}
	for i := range people {
		p := &people[i].person
		if m, ok := managers[p.Team]; ok && m != people[i].id {
			p.ManagerID = m
		}
	}

	for _, d := range people {
		if err := reg.Register(models.TypePerson, d.id, d.person, g.s.Start); err != nil {
			return err
		}
	}
	return nil
}

func personID(i int) string {
	return fmt.Sprintf("P_%03d", i+1)
}

func isManager(role string) bool {
	return strings.Contains(role, "Manager") || strings.Contains(role, "Director")
}
