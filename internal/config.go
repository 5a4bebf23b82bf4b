package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/orgsynth/internal/generator"
	"github.com/starford/orgsynth/internal/graph"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/validate"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Generation GenerationConfig  `yaml:"generation"`
	Graph      GraphConfig       `yaml:"graph"`
	Validation ValidationConfig  `yaml:"validation"`
	Output     OutputConfig      `yaml:"output"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration. Sections are checked on their own
// first, then the references between them.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	known := knownTeams(c.Generation.Taxonomy.Teams)
	for i, m := range c.Graph.MandatoryOverlaps {
		if err := validation.Validate(m.Teams, known); err != nil {
			return fmt.Errorf("graph: mandatory_overlaps[%d]: %w", i, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Date is a calendar day written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// UnmarshalYAML parses quoted and unquoted dates alike.
func (d *Date) UnmarshalYAML(n *yaml.Node) error {
	t, err := time.Parse(time.DateOnly, n.Value)
	if err != nil {
		return fmt.Errorf("line %d: date %q is not YYYY-MM-DD", n.Line, n.Value)
	}
	d.Time = t
	return nil
}

// MarshalYAML writes the date back as YYYY-MM-DD.
func (d Date) MarshalYAML() (any, error) {
	return d.Format(time.DateOnly), nil
}

// GenerationConfig drives the generators.
type GenerationConfig struct {
	Seed        int64           `yaml:"seed"`
	CompanyName string          `yaml:"company_name"`
	Volumes     VolumesConfig   `yaml:"volumes"`
	Taxonomy    TaxonomyConfig  `yaml:"taxonomy"`
	Personas    []PersonaConfig `yaml:"personas"`
	Temporal    TemporalConfig  `yaml:"temporal"`
	Defects     DefectsConfig   `yaml:"defects"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.CompanyName, validation.Required),
		validation.Field(&c.Volumes),
		validation.Field(&c.Taxonomy),
		validation.Field(&c.Temporal),
		validation.Field(&c.Defects),
	); err != nil {
		return err
	}
	known := knownTeams(c.Taxonomy.Teams)
	for i, p := range c.Personas {
		if err := validation.ValidateStruct(&p,
			validation.Field(&p.Name, validation.Required),
			validation.Field(&p.Role, validation.Required),
			validation.Field(&p.Team, validation.Required, validation.By(func(v any) error {
				return known.Validate([]string{v.(string)})
			})),
		); err != nil {
			return fmt.Errorf("personas[%d]: %w", i, err)
		}
	}
	if len(c.Personas) > c.Volumes.People {
		return fmt.Errorf("volumes: people (%d) is smaller than the persona list (%d)", c.Volumes.People, len(c.Personas))
	}
	staffed := make(map[string]bool)
	for _, p := range c.Personas {
		staffed[p.Team] = true
	}
	empty := 0
	for _, t := range c.Taxonomy.Teams {
		if !staffed[t] {
			empty++
		}
	}
	if need := len(c.Personas) + empty; c.Volumes.People < need {
		return fmt.Errorf("volumes: people (%d) cannot staff every team, need at least %d", c.Volumes.People, need)
	}
	return nil
}

// VolumesConfig sets how many entities each generator produces.
type VolumesConfig struct {
	People        int `yaml:"people"`
	Documents     int `yaml:"documents"`
	VersionChains int `yaml:"version_chains"`
	Threads       int `yaml:"threads"`
	MessagesMin   int `yaml:"messages_min"`
	MessagesMax   int `yaml:"messages_max"`
	Meetings      int `yaml:"meetings"`
	Events        int `yaml:"events"`
	MetricsMonths int `yaml:"metrics_months"`
}

// Validate validates the volumes.
func (c VolumesConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.People, validation.Required, validation.Min(1)),
		validation.Field(&c.Documents, validation.Min(0)),
		validation.Field(&c.VersionChains, validation.Min(0), validation.Max(c.Documents/2)),
		validation.Field(&c.Threads, validation.Min(0)),
		validation.Field(&c.MessagesMin, validation.Required, validation.Min(1)),
		validation.Field(&c.MessagesMax, validation.Required, validation.Min(c.MessagesMin)),
		validation.Field(&c.Meetings, validation.Min(0)),
		validation.Field(&c.Events, validation.Min(0)),
		validation.Field(&c.MetricsMonths, validation.Min(0), validation.Max(120)),
	)
}

// TaxonomyConfig is the organisation's teams and topic catalog.
type TaxonomyConfig struct {
	Teams  []string      `yaml:"teams"`
	Topics []TopicConfig `yaml:"topics"`
}

// Validate validates the taxonomy.
func (c TaxonomyConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Teams, validation.Required, validation.Length(1, 0), validation.Each(validation.Required), validation.By(unique)),
		validation.Field(&c.Topics, validation.Required),
	); err != nil {
		return err
	}
	known := knownTeams(c.Teams)
	names := make([]string, 0, len(c.Topics))
	for i, t := range c.Topics {
		if err := validation.ValidateStruct(&t,
			validation.Field(&t.Name, validation.Required),
		); err != nil {
			return fmt.Errorf("topics[%d]: %w", i, err)
		}
		if t.Team != "" {
			if err := known.Validate([]string{t.Team}); err != nil {
				return fmt.Errorf("topics[%d]: %w", i, err)
			}
		}
		names = append(names, t.Name)
	}
	if err := unique(names); err != nil {
		return fmt.Errorf("topics: %w", err)
	}
	return nil
}

// TopicConfig is one catalog entry. Team is empty for shared topics.
type TopicConfig struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
	Team    string   `yaml:"team,omitempty"`
}

// PersonaConfig is a person whose activity is tracked as events.
type PersonaConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
	Team string `yaml:"team"`
}

// TemporalConfig bounds every timestamp of a run.
type TemporalConfig struct {
	StartDate    Date `yaml:"start_date"`
	EndDate      Date `yaml:"end_date"`
	HalfLifeDays int  `yaml:"half_life_days"`
}

// Validate validates the temporal window.
func (c TemporalConfig) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if !c.EndDate.After(c.StartDate.Time) {
		return fmt.Errorf("end_date %s is not after start_date %s",
			c.EndDate.Format(time.DateOnly), c.StartDate.Format(time.DateOnly))
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.HalfLifeDays, validation.Required, validation.Min(1)),
	)
}

// DefectsConfig injects known inconsistencies for the repair engine.
type DefectsConfig struct {
	DanglingReferences int `yaml:"dangling_references"`
	OutOfOrderVersions int `yaml:"out_of_order_versions"`
}

// Validate validates the defect knobs.
func (c DefectsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DanglingReferences, validation.Min(0)),
		validation.Field(&c.OutOfOrderVersions, validation.Min(0)),
	)
}

// GraphConfig configures the knowledge graph builder.
type GraphConfig struct {
	// OverlapThreshold is compared with the saturated confidence
	// 1 - exp(-aggregate/saturation), not with the raw edge weight sum.
	OverlapThreshold  float64                  `yaml:"overlap_threshold"`
	Saturation        float64                  `yaml:"saturation"`
	EvidenceTopK      int                      `yaml:"evidence_top_k"`
	MergePolicy       string                   `yaml:"merge_policy"`
	MandatoryOverlaps []MandatoryOverlapConfig `yaml:"mandatory_overlaps"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	if c.MergePolicy == "" {
		c.MergePolicy = string(graph.MergeWeightedAverage)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.OverlapThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Saturation, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.EvidenceTopK, validation.Required, validation.Min(1)),
		validation.Field(&c.MergePolicy, validation.In(string(graph.MergeWeightedAverage), string(graph.MergeMax))),
	); err != nil {
		return err
	}
	for i, m := range c.MandatoryOverlaps {
		if err := validation.ValidateStruct(&m,
			validation.Field(&m.Topic, validation.Required),
			validation.Field(&m.Teams, validation.Required, validation.Length(2, 0), validation.By(unique)),
		); err != nil {
			return fmt.Errorf("mandatory_overlaps[%d]: %w", i, err)
		}
	}
	return nil
}

// MandatoryOverlapConfig names an overlap that must appear in every run.
type MandatoryOverlapConfig struct {
	Topic   string   `yaml:"topic"`
	Teams   []string `yaml:"teams"`
	Summary string   `yaml:"summary"`
}

// ValidationConfig bounds the repair loop and content checks.
type ValidationConfig struct {
	MaxRepairPasses int `yaml:"max_repair_passes"`
	MaxTags         int `yaml:"max_tags"`
	MaxTitleLength  int `yaml:"max_title_length"`
}

// Validate validates the validation configuration.
func (c *ValidationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRepairPasses, validation.Required, validation.Min(1), validation.Max(20)),
		validation.Field(&c.MaxTags, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTitleLength, validation.Required, validation.Min(8)),
	)
}

// OutputConfig holds where a run is written.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// teamSet rejects team names outside the taxonomy.
type teamSet map[string]bool

func knownTeams(teams []string) teamSet {
	s := make(teamSet, len(teams))
	for _, t := range teams {
		s[t] = true
	}
	return s
}

// Validate implements validation.Rule over a []string.
func (s teamSet) Validate(value any) error {
	teams, _ := value.([]string)
	for _, t := range teams {
		if !s[t] {
			return fmt.Errorf("unknown team %q", t)
		}
	}
	return nil
}

func unique(value any) error {
	items, _ := value.([]string)
	seen := make(map[string]bool, len(items))
	for _, v := range items {
		if seen[v] {
			return fmt.Errorf("duplicate %q", v)
		}
		seen[v] = true
	}
	return nil
}

// Settings converts the generation section for the generators.
func (c *Config) Settings() generator.Settings {
	g := c.Generation
	s := generator.Settings{
		CompanyName: g.CompanyName,
		Teams:       slices.Clone(g.Taxonomy.Teams),
		Start:       g.Temporal.StartDate.Time,
		End:         g.Temporal.EndDate.Time,
		Volumes: generator.Volumes{
			People:        g.Volumes.People,
			Documents:     g.Volumes.Documents,
			VersionChains: g.Volumes.VersionChains,
			Threads:       g.Volumes.Threads,
			MessagesMin:   g.Volumes.MessagesMin,
			MessagesMax:   g.Volumes.MessagesMax,
			Meetings:      g.Volumes.Meetings,
			Events:        g.Volumes.Events,
			MetricsMonths: g.Volumes.MetricsMonths,
		},
		Defects: generator.Defects{
			DanglingReferences: g.Defects.DanglingReferences,
			OutOfOrderVersions: g.Defects.OutOfOrderVersions,
		},
	}
	for _, t := range g.Taxonomy.Topics {
		s.Topics = append(s.Topics, generator.TopicSpec{Name: t.Name, Aliases: slices.Clone(t.Aliases), Team: t.Team})
	}
	for _, p := range g.Personas {
		s.Personas = append(s.Personas, generator.Persona{Name: p.Name, Role: p.Role, Team: p.Team})
	}
	return s
}

// GraphOptions converts the graph section for the builder.
func (c *Config) GraphOptions() graph.Options {
	opts := graph.DefaultOptions(c.Generation.Temporal.StartDate.Time, c.Generation.Temporal.EndDate.Time)
	opts.HalfLife = time.Duration(c.Generation.Temporal.HalfLifeDays) * 24 * time.Hour
	opts.OverlapThreshold = c.Graph.OverlapThreshold
	opts.Saturation = c.Graph.Saturation
	opts.EvidenceTopK = c.Graph.EvidenceTopK
	opts.MergePolicy = graph.MergePolicy(c.Graph.MergePolicy)
	for _, m := range c.Graph.MandatoryOverlaps {
		opts.Mandatory = append(opts.Mandatory, graph.MandatoryOverlap{
			Topic:   m.Topic,
			Teams:   slices.Clone(m.Teams),
			Summary: m.Summary,
		})
	}
	return opts
}

// ValidationOptions converts the validation section for the repair engine.
func (c *Config) ValidationOptions() validate.Options {
	return validate.Options{
		MaxPasses: c.Validation.MaxRepairPasses,
		Limits: models.ContentLimits{
			MaxTags:        c.Validation.MaxTags,
			MaxTitleLength: c.Validation.MaxTitleLength,
		},
	}
}

// PipelineOptions assembles a run from the whole configuration.
func (c *Config) PipelineOptions(formats ...validate.FormatValidator) pipeline.Options {
	return pipeline.Options{
		Seed:       c.Generation.Seed,
		Stages:     generator.Stages(c.Settings()),
		Graph:      c.GraphOptions(),
		Validation: c.ValidationOptions(),
		Formats:    formats,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	def := generator.DefaultSettings()
	cfg := &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Generation: GenerationConfig{
			Seed:        42,
			CompanyName: def.CompanyName,
			Volumes: VolumesConfig{
				People:        def.Volumes.People,
				Documents:     def.Volumes.Documents,
				VersionChains: def.Volumes.VersionChains,
				Threads:       def.Volumes.Threads,
				MessagesMin:   def.Volumes.MessagesMin,
				MessagesMax:   def.Volumes.MessagesMax,
				Meetings:      def.Volumes.Meetings,
				Events:        def.Volumes.Events,
				MetricsMonths: def.Volumes.MetricsMonths,
			},
			Taxonomy: TaxonomyConfig{Teams: slices.Clone(def.Teams)},
			Temporal: TemporalConfig{
				StartDate:    Date{def.Start},
				EndDate:      Date{def.End},
				HalfLifeDays: 30,
			},
		},
		Graph: GraphConfig{
			OverlapThreshold: 0.5,
			Saturation:       2,
			EvidenceTopK:     6,
			MergePolicy:      string(graph.MergeWeightedAverage),
			MandatoryOverlaps: []MandatoryOverlapConfig{
				{Topic: "customer churn", Teams: []string{"Marketing", "Product"}, Summary: "Both teams track churn drivers with separate dashboards."},
				{Topic: "onboarding performance", Teams: []string{"Product", "HR"}, Summary: "Product onboarding and employee onboarding share funnel metrics."},
				{Topic: "pricing impact", Teams: []string{"Finance", "Marketing"}, Summary: "Pricing changes are modelled by Finance and messaged by Marketing."},
				{Topic: "hiring freeze", Teams: []string{"HR", "Finance"}, Summary: "Headcount plans depend on the same budget forecast."},
				{Topic: "policy update", Teams: []string{"HR", "Engineering"}, Summary: "Policy changes need tooling and access updates."},
			},
		},
		Validation: ValidationConfig{
			MaxRepairPasses: 3,
			MaxTags:         12,
			MaxTitleLength:  120,
		},
		Output: OutputConfig{
			Dir:        "./dataset",
			SQLitePath: "./orgsynth.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
	for _, t := range def.Topics {
		cfg.Generation.Taxonomy.Topics = append(cfg.Generation.Taxonomy.Topics, TopicConfig{Name: t.Name, Aliases: t.Aliases, Team: t.Team})
	}
	for _, p := range def.Personas {
		cfg.Generation.Personas = append(cfg.Generation.Personas, PersonaConfig{Name: p.Name, Role: p.Role, Team: p.Team})
	}
	return cfg
}
