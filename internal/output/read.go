package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/checksum"
	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
	"github.com/starford/orgsynth/internal/storage"
)

// Bundle is an output directory loaded back into memory.
type Bundle struct {
	Dataset  *dataset.Dataset
	Report   pipeline.Report
	Manifest Manifest
}

// ReadManifest loads the manifest. A missing manifest yields ErrNotFound.
func ReadManifest(p storage.Provider) (*Manifest, error) {
	data, err := p.Read(ManifestFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, ManifestFile)
		}
		return nil, err
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("output: decode manifest: %w", err)
	}
	return &man, nil
}

// Read loads every file the manifest lists, verifying checksums.
func Read(p storage.Provider) (*Bundle, error) {
	man, err := ReadManifest(p)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Manifest: *man}

	var recs []models.Record
	for _, t := range models.AllTypes {
		entry, ok := man.File(RecordFile(t))
		if !ok {
			continue
		}
		part, err := readLines[models.Record](p, entry)
		if err != nil {
			return nil, err
		}
		recs = append(recs, part...)
	}
	var edges []models.Edge
	if entry, ok := man.File(EdgesFile); ok {
		if edges, err = readLines[models.Edge](p, entry); err != nil {
			return nil, err
		}
	}
	var overlaps []models.Overlap
	if entry, ok := man.File(OverlapsFile); ok {
		if overlaps, err = readLines[models.Overlap](p, entry); err != nil {
			return nil, err
		}
	}
	if entry, ok := man.File(ReportFile); ok {
		data, err := readVerified(p, entry)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &b.Report); err != nil {
			return nil, fmt.Errorf("output: decode report: %w", err)
		}
	}
	b.Dataset = dataset.FromRecords(recs, edges, overlaps)
	return b, nil
}

func readVerified(p storage.Provider, entry FileEntry) ([]byte, error) {
	data, err := p.Read(entry.Path)
	if err != nil {
		return nil, err
	}
	if sum := checksum.Sum(data); sum != entry.Checksum {
		return nil, fmt.Errorf("%w: %s checksum %s, manifest has %s", apperr.ErrInvalidRecord, entry.Path, sum, entry.Checksum)
	}
	return data, nil
}

func readLines[T any](p storage.Provider, entry FileEntry) ([]T, error) {
	data, err := readVerified(p, entry)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, entry.Records)
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("output: decode %s line %d: %w", entry.Path, len(out)+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}
