package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/orgsynth/internal"
	pkgconfig "github.com/starford/orgsynth/pkg/config"
)

var version = "dev"

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("seed") {
		cfg.Generation.Seed = cmd.Int("seed")
	}
	if cmd.IsSet("output") {
		cfg.Output.Dir = cmd.String("output")
	}
	if cmd.IsSet("db") {
		cfg.Output.SQLitePath = cmd.String("db")
	}
	return cfg, nil
}

func action(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
			internal.WithReloader(cmd.String("config"), func() (*internal.Config, error) {
				return loadConfig(cmd)
			}),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "orgsynth",
		Usage:   "Deterministic synthetic organisation dataset generator with a knowledge graph",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "seed",
				Aliases: []string{"s"},
				Usage:   "Override generation.seed",
				Sources: cli.EnvVars("DATASET_SEED"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Override output.dir",
				Sources: cli.EnvVars("DATASET_OUTPUT_DIR"),
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Override output.sqlite_path",
				Sources: cli.EnvVars("DATASET_SQLITE_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Run the pipeline once and write the dataset",
				Action: action(internal.ModeGenerate),
			},
			{
				Name:   "serve",
				Usage:  "Serve the generated dataset over a read-only REST API",
				Action: action(internal.ModeServe),
			},
			{
				Name:   "mcp",
				Usage:  "Expose the generated dataset to LLMs over MCP stdio",
				Action: action(internal.ModeMCP),
			},
			{
				Name:   "watch",
				Usage:  "Regenerate whenever the config file changes",
				Action: action(internal.ModeWatch),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
