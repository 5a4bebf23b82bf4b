package internal

// Mode selects what Run does.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeServe    Mode = "serve"
	ModeMCP      Mode = "mcp"
	ModeWatch    Mode = "watch"
)

// Option is a functional option for configuring the application.
type Option func(*application)

// Reloader re-reads the configuration, applying the same overrides as the
// initial load.
type Reloader func() (*Config, error)

type application struct {
	config     *Config
	mode       Mode
	version    string
	configPath string
	reload     Reloader
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeGenerate.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithReloader sets the config file watched in ModeWatch and how to reload it.
func WithReloader(path string, fn Reloader) Option {
	return func(a *application) {
		a.configPath = path
		a.reload = fn
	}
}
