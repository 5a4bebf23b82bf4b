package internal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/output"
	"github.com/starford/orgsynth/internal/storage"
	"github.com/starford/orgsynth/internal/store"
)

func smallConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Generation.Volumes = VolumesConfig{
		People: 12, Documents: 20, VersionChains: 3, Threads: 8,
		MessagesMin: 2, MessagesMax: 4, Meetings: 4, Events: 15, MetricsMonths: 2,
	}
	cfg.Generation.Defects = DefectsConfig{DanglingReferences: 1, OutOfOrderVersions: 1}
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.SQLitePath = filepath.Join(dir, "orgsynth.db")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestGenerateWritesOutputAndStore(t *testing.T) {
	cfg := smallConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manifest, err := generate(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if manifest.Seed != 42 || manifest.Checksum == "" {
		t.Errorf("manifest = %+v", manifest)
	}

	files, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		t.Fatal(err)
	}
	bundle, err := output.Read(files)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if n := len(bundle.Dataset.Records(models.TypeTeam)); n != 5 {
		t.Errorf("teams = %d", n)
	}

	db, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	sum, err := db.Checksum()
	if err != nil || sum != manifest.Checksum {
		t.Errorf("store checksum = %q, %v; want %q", sum, err, manifest.Checksum)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := generate(context.Background(), smallConfig(t), logger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := generate(context.Background(), smallConfig(t), logger)
	if err != nil {
		t.Fatal(err)
	}
	if a.Checksum != b.Checksum {
		t.Errorf("checksums differ: %s vs %s", a.Checksum, b.Checksum)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
