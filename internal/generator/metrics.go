package generator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/registry"
	"github.com/starford/orgsynth/internal/rng"
)

type metricDef struct {
	name     string
	unit     string
	base     float64
	drift    float64
	variance float64
}

var metricDefs = map[string][]metricDef{
	"Marketing":   {{"conversion_rate", "percent", 3.2, 0.03, 0.4}, {"leads", "count", 900, 15, 120}},
	"Product":     {{"active_users", "count", 12000, 350, 800}, {"retention_rate", "percent", 82, 0.1, 2}},
	"Engineering": {{"deploys", "count", 40, 1, 6}, {"incidents", "count", 6, -0.1, 2}},
	"Finance":     {{"revenue", "usd", 1_200_000, 25_000, 60_000}, {"burn_rate", "usd", 400_000, 2_000, 30_000}},
	"HR":          {{"headcount", "count", 25, 0.3, 1}, {"attrition_rate", "percent", 1.5, 0, 0.5}},
}

var defaultMetrics = []metricDef{{"headcount", "count", 5, 0.1, 1}}

// Metrics writes monthly business metrics per team.
type Metrics struct {
	s Settings
}

func (g *Metrics) Name() string { return "metrics" }

func (g *Metrics) Generate(ctx context.Context, reg *registry.Registry, src rng.Source) error {
	r := src.Stream(g.Name())
	for _, team := range g.s.Teams {
		if err := ctx.Err(); err != nil {
			return err
		}
		defs, ok := metricDefs[team]
		if !ok {
			defs = defaultMetrics
		}
		for m := 0; m < g.s.Volumes.MetricsMonths; m++ {
			month := g.s.Start.AddDate(0, m, 0)
			if !month.Before(g.s.End) {
				break
			}
			// Reported at the close of the month.
			at := earlier(month.AddDate(0, 1, 0), g.s.End)
			period := month.Format("2006-01")
			for _, d := range defs {
				v := d.base + d.drift*float64(m) + (r.Float64()*2-1)*d.variance
				v = math.Round(math.Max(v, 0)*100) / 100
				id := fmt.Sprintf("MET-%s-%s-%s", strings.ToUpper(tagOf(team)), period, d.name)
				metric := models.Metric{Team: team, Name: d.name, Period: period, Value: v, Unit: d.unit}
				if err := reg.Register(models.TypeMetric, id, metric, at); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
