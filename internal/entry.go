// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/orgsynth/internal/api"
	"github.com/starford/orgsynth/internal/browse"
	"github.com/starford/orgsynth/internal/mcpserver"
	"github.com/starford/orgsynth/internal/output"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/storage"
	"github.com/starford/orgsynth/internal/store"
	"github.com/starford/orgsynth/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeGenerate, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// stdout carries the MCP protocol, so logs go to stderr there.
	var logOut io.Writer = os.Stdout
	if app.mode == ModeMCP {
		logOut = os.Stderr
	}
	logger := newLogger(logOut, cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.Int64("seed", cfg.Generation.Seed),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("sqlite_path", cfg.Output.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	switch app.mode {
	case ModeGenerate:
		_, err := generate(ctx, cfg, logger)
		return err
	case ModeServe:
		return serve(ctx, cfg, logger)
	case ModeMCP:
		return serveMCP(cfg, app.version, logger)
	case ModeWatch:
		return watchConfig(ctx, app, logger)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, hopts))
	}
	return slog.New(slog.NewJSONHandler(w, hopts))
}

// generate runs the pipeline, writes the output directory and loads the
// result into SQLite.
func generate(ctx context.Context, cfg *Config, logger *slog.Logger) (*output.Manifest, error) {
	started := time.Now()
	runner := pipeline.New(cfg.PipelineOptions(output.Format{}), logger)
	out, err := runner.Run(ctx)
	if err != nil {
		rep := runner.Report()
		logger.Error("run failed",
			slog.String("phase", string(rep.Phase)),
			slog.Bool("fatal", pipeline.IsFatal(err)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("generate: %w", err)
	}

	mgr, err := output.NewManager(cfg.Output.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	manifest, err := mgr.Write(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	db, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	if err := db.Save(out.Dataset, out.Report); err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}

	rep := out.Report
	logger.Info("Dataset generated",
		slog.String("checksum", rep.Checksum),
		slog.Int("records", manifest.Statistics.Total),
		slog.Int("edges", rep.Edges),
		slog.Int("overlaps", rep.Overlaps),
		slog.Int("warnings", rep.Warnings),
		slog.Int("errors", rep.Errors),
		slog.Int("repairs", rep.Repairs),
		slog.Int("dropped", len(rep.Dropped)),
		slog.Int("repair_passes", rep.Passes),
		slog.Duration("elapsed", time.Since(started)))
	return manifest, nil
}

// openDataset opens the store and brings it up to date with the output
// directory.
func openDataset(cfg *Config, logger *slog.Logger) (*store.DB, *storage.FS, error) {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	if _, err := store.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return db, files, nil
}

func serve(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	db, files, err := openDataset(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := browse.NewService(db, files)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if sum, err := db.Checksum(); err != nil || sum == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no dataset"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the store whenever a new run lands in the output directory.
	g.Go(func() error {
		manifest := filepath.Join(cfg.Output.Dir, output.ManifestFile)
		return watch.Files(gCtx, []string{manifest}, watch.DefaultDebounce, logger, func(context.Context, []string) error {
			_, err := store.Sync(db, files, logger)
			return err
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the remaining serve goroutines after a signal.
var errShutdown = errors.New("shutdown")

func serveMCP(cfg *Config, version string, logger *slog.Logger) error {
	db, files, err := openDataset(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(browse.NewService(db, files), version).ServeStdio()
}

// watchConfig generates once, then again after every edit of the config
// file. A run that fails keeps the previous output in place.
func watchConfig(ctx context.Context, app *application, logger *slog.Logger) error {
	if app.reload == nil || app.configPath == "" {
		return fmt.Errorf("watch mode needs a config file")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := generate(ctx, app.config, logger); err != nil {
		logger.Error("initial run failed", slog.String("error", err.Error()))
	}

	return watch.Files(ctx, []string{app.configPath}, watch.DefaultDebounce, logger, func(ctx context.Context, _ []string) error {
		cfg, err := app.reload()
		if err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
		logger.Info("Config changed, regenerating", slog.Int64("seed", cfg.Generation.Seed))
		_, err = generate(ctx, cfg, logger)
		return err
	})
}
