package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/orgsynth/internal/checksum"
)

func tempOutput(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempOutput(t)
	content := []byte(`{"type":"TEAM","id":"HR"}` + "\n")
	if err := s.Write("teams.jsonl", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("teams.jsonl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempOutput(t)
	if err := s.Write("graph/edges.jsonl", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("graph/edges.jsonl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("stale.jsonl", []byte("bye"))
	if err := s.Delete("stale.jsonl"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("stale.jsonl"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("stale.jsonl"); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("people.jsonl", []byte("a"))
	_ = s.Write("graph/edges.jsonl", []byte("b"))
	_ = s.Write(".hidden", []byte("skip"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "graph/edges.jsonl" || items[1].Path != "people.jsonl" {
		t.Errorf("paths = %s, %s", items[0].Path, items[1].Path)
	}
	if items[1].Size != 1 || items[1].Checksum != checksum.Sum([]byte("a")) {
		t.Errorf("metadata = %+v", items[1])
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempOutput(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.jsonl",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("report.json", []byte("original"))
	if err := s.Write("report.json", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("report.json")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "orgsynth-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
