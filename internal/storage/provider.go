// Package storage defines the output directory abstraction.
package storage

import "time"

// File describes one file of an output directory.
type File struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for output file operations. Paths are relative to
// the provider root.
type Provider interface {
	// List returns every regular, non-hidden file under dir.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
