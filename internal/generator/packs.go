package generator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

const (
	packDocs    = 5
	packExperts = 3
)

// Packs writes one onboarding starter pack per team.
type Packs struct {
	s Settings
}

func (g *Packs) Name() string { return "packs" }

func (g *Packs) Generate(ctx context.Context, reg *registry.Registry, _ rng.Source) error {
	byTeam := peopleByTeam(reg)
	for _, team := range g.s.Teams {
		if err := ctx.Err(); err != nil {
			return err
		}
		docs := reg.Filter(models.TypeDoc, func(rec models.Record) bool {
			d := rec.Payload.(models.Document)
			return d.Team == team && d.Status == "final"
		})
		// Most recent first.
		slices.SortStableFunc(docs, func(a, b models.Record) int { return b.CreatedAt.Compare(a.CreatedAt) })
		docs = docs[:min(packDocs, len(docs))]

		experts := slices.Clone(byTeam[team])
		if len(experts) == 0 {
			return fmt.Errorf("team %s: %w: no experts", team, apperr.ErrCapacity)
		}
		slices.SortStableFunc(experts, func(a, b models.Record) int {
			return cmp.Compare(b.Payload.(models.Person).TenureMonths, a.Payload.(models.Person).TenureMonths)
		})
		experts = experts[:min(packExperts, len(experts))]

		pack := models.StarterPack{
			Team:    team,
			Title:   team + " Starter Pack",
			Summary: fmt.Sprintf("Key documents and people for new members of %s.", team),
			DocIDs:  ids(docs),
			Experts: ids(experts),
		}
		id := "PACK-" + strings.ToUpper(tagOf(team))
		if err := reg.Register(models.TypePack, id, pack, g.s.End); err != nil {
			return err
		}
	}
	return nil
}
