package generator

import (
	"context"
	"slices"
	"time"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

// Permissions writes one ACL per document and per thread.
type Permissions struct {
	s Settings
}

func (g *Permissions) Name() string { return "permissions" }

func (g *Permissions) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	people := ids(reg.Filter(models.TypePerson, nil))

	i := 0
	for rec := range reg.AllOf(models.TypeDoc) {
		if err := every(ctx, i, 50); err != nil {
			return err
		}
		i++
		d := rec.Payload.(models.Document)
		acl := models.ACL{ResourceType: models.TypeDoc, ResourceID: rec.ID}
		switch d.Visibility {
		case "company":
			acl.AllowTeams = g.s.Teams
		case "restricted":
			acl.AllowPersonIDs = append([]string{d.AuthorPersonID}, d.CoAuthors...)
			// The author's manager can always read restricted work.
			if author, _, err := registry.Lookup[models.Person](reg, d.AuthorPersonID); err == nil {
				if m := author.ManagerID; m != "" && !slices.Contains(acl.AllowPersonIDs, m) {
					acl.AllowPersonIDs = append(acl.AllowPersonIDs, m)
				}
			}
		default:
			acl.AllowTeams = []string{d.Team}
		}
		if len(people) > 0 && r.IntN(12) == 0 {
			acl.DenyPersonIDs = []string{rng.Pick(r, people)}
		}
		// Flag confidential documents visible company-wide.
		acl.Warning = d.Confidentiality == "confidential" && d.Visibility == "company"
		if err := reg.Register(models.TypeACL, "ACL-"+rec.ID, acl, rec.CreatedAt.Add(time.Minute)); err != nil {
			return err
		}
	}

	for rec := range reg.AllOf(models.TypeThread) {
		th := rec.Payload.(models.Thread)
		acl := models.ACL{
			ResourceType:   models.TypeThread,
			ResourceID:     rec.ID,
			AllowTeams:     []string{th.Team},
			AllowPersonIDs: th.Participants,
		}
		if err := reg.Register(models.TypeACL, "ACL-"+rec.ID, acl, rec.CreatedAt.Add(time.Minute)); err != nil {
			return err
		}
	}
	return nil
}
