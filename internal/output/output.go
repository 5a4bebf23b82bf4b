// Package output writes a finalized run to a directory of JSONL files, one
// Markdown file per document, the run report and a manifest, and reads such
// a directory back.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/storage"
)

// File layout of an output directory.
const (
	EdgesFile    = "graph/edges.jsonl"
	OverlapsFile = "graph/overlaps.jsonl"
	IssuesFile   = "issues.jsonl"
	ReportFile   = "report.json"
	ManifestFile = "manifest.json"
	DocsDir      = "kb"
)

var recordFiles = map[models.EntityType]string{
	models.TypeTeam:    "teams.jsonl",
	models.TypePerson:  "people.jsonl",
	models.TypeTopic:   "topics.jsonl",
	models.TypeDoc:     "documents.jsonl",
	models.TypeThread:  "threads.jsonl",
	models.TypeMessage: "messages.jsonl",
	models.TypeMeeting: "meetings.jsonl",
	models.TypeACL:     "acls.jsonl",
	models.TypeEvent:   "events.jsonl",
	models.TypeMetric:  "metrics.jsonl",
	models.TypePack:    "packs.jsonl",
}

// RecordFile returns the JSONL file holding records of type t.
func RecordFile(t models.EntityType) string {
	return recordFiles[t]
}

// DocFile returns the Markdown file of a document.
func DocFile(id string) string {
	return path.Join(DocsDir, id+".md")
}

// Manager writes runs into one output directory.
type Manager struct {
	fs     storage.Provider
	logger *slog.Logger
}

// NewManager creates dir if needed and returns a Manager writing into it.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create %s: %w", dir, err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	return NewManagerFor(fs, logger), nil
}

// NewManagerFor returns a Manager over an existing provider.
func NewManagerFor(fs storage.Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{fs: fs, logger: logger}
}

// Provider returns the underlying file provider.
func (m *Manager) Provider() storage.Provider {
	return m.fs
}

type writer struct {
	fs      storage.Provider
	written map[string]bool
	files   []FileEntry
}

func (w *writer) put(p string, t models.EntityType, records int, data []byte) error {
	if err := w.fs.Write(p, data); err != nil {
		return err
	}
	w.written[p] = true
	w.files = append(w.files, newFileEntry(p, t, records, data))
	return nil
}

// Write replaces the directory contents with out. The manifest is removed
// first and written last, so a directory without one is incomplete.
func (m *Manager) Write(ctx context.Context, out *pipeline.Output) (*Manifest, error) {
	if err := m.fs.Delete(ManifestFile); err != nil {
		return nil, err
	}
	ds := out.Dataset
	w := &writer{fs: m.fs, written: map[string]bool{ManifestFile: true}}

	for _, t := range models.AllTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs := ds.Records(t)
		if len(recs) == 0 {
			continue
		}
		data, err := encodeLines(recs)
		if err != nil {
			return nil, fmt.Errorf("output: encode %s: %w", t, err)
		}
		if err := w.put(RecordFile(t), t, len(recs), data); err != nil {
			return nil, err
		}
	}

	for i, rec := range ds.Records(models.TypeDoc) {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p := DocFile(rec.ID)
		if err := m.fs.Write(p, []byte(rec.Payload.(models.Document).Content)); err != nil {
			return nil, err
		}
		w.written[p] = true
	}

	edges, err := encodeLines(ds.Edges())
	if err != nil {
		return nil, fmt.Errorf("output: encode edges: %w", err)
	}
	if err := w.put(EdgesFile, "", len(ds.Edges()), edges); err != nil {
		return nil, err
	}
	overlaps, err := encodeLines(ds.Overlaps())
	if err != nil {
		return nil, fmt.Errorf("output: encode overlaps: %w", err)
	}
	if err := w.put(OverlapsFile, "", len(ds.Overlaps()), overlaps); err != nil {
		return nil, err
	}
	issues, err := encodeLines(out.Report.Issues)
	if err != nil {
		return nil, fmt.Errorf("output: encode issues: %w", err)
	}
	if err := w.put(IssuesFile, "", len(out.Report.Issues), issues); err != nil {
		return nil, err
	}
	report, err := json.MarshalIndent(out.Report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: encode report: %w", err)
	}
	if err := w.put(ReportFile, "", 0, report); err != nil {
		return nil, err
	}

	if err := m.prune(w.written); err != nil {
		return nil, err
	}

	man := buildManifest(out, w.files)
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: encode manifest: %w", err)
	}
	if err := m.fs.Write(ManifestFile, data); err != nil {
		return nil, err
	}
	m.logger.Info("output written",
		slog.Int("files", len(w.written)),
		slog.String("checksum", man.Checksum),
	)
	return man, nil
}

// prune removes files left over from an earlier run.
func (m *Manager) prune(keep map[string]bool) error {
	files, err := m.fs.List("")
	if err != nil {
		return err
	}
	for _, f := range files {
		if keep[f.Path] {
			continue
		}
		if err := m.fs.Delete(f.Path); err != nil {
			return err
		}
		m.logger.Debug("removed stale output", slog.String("path", f.Path))
	}
	return nil
}

func encodeLines[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
