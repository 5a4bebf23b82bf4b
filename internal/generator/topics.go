package generator

import (
	"context"
	"fmt"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

// Topics registers the topic catalog. Scores and related topics are filled in
// by the graph builder.
type Topics struct {
	s Settings
}

func (g *Topics) Name() string { return "topics" }

func (g *Topics) Generate(ctx context.Context, reg *registry.Registry, _ rng.Source) error {
	for i, def := range g.s.Topics {
		if err := every(ctx, i, 50); err != nil {
			return err
		}
		t := models.Topic{Name: def.Name, Aliases: def.Aliases, Team: def.Team}
		if err := reg.Register(models.TypeTopic, topicID(i), t, g.s.Start); err != nil {
			return err
		}
	}
	return nil
}

func topicID(i int) string {
	return fmt.Sprintf("TOP-%03d", i+1)
}
