package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count is negative")
	}
	return nil
}

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "acme")
	var s sample
	if err := Load(write(t, "name: ${SAMPLE_NAME}\ncount: 3\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "acme" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadKeepsDefaultsForEmptyFile(t *testing.T) {
	s := sample{Name: "default"}
	if err := Load(write(t, ""), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	var s sample
	if err := Load(write(t, "name: x\ncolour: red\n"), &s); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestLoadRunsValidator(t *testing.T) {
	var s sample
	err := Load(write(t, "count: -1\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "count is negative") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := write(t, "name: fallback\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q", s.Name)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("expected error without a default file")
	}
}
