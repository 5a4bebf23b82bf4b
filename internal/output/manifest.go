package output

import (
	"time"

	"github.com/starford/orgsynth/internal/checksum"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
)

// FileEntry describes one written file.
type FileEntry struct {
	Path     string            `json:"path"`
	Type     models.EntityType `json:"type,omitempty"`
	Records  int               `json:"records"`
	Size     int64             `json:"size"`
	Checksum string            `json:"checksum"`
}

func newFileEntry(p string, t models.EntityType, records int, data []byte) FileEntry {
	return FileEntry{
		Path:     p,
		Type:     t,
		Records:  records,
		Size:     int64(len(data)),
		Checksum: checksum.Sum(data),
	}
}

// Statistics summarise the dataset.
type Statistics struct {
	Counts       map[models.EntityType]int `json:"counts"`
	Total        int                       `json:"total_records"`
	Edges        int                       `json:"edges"`
	Overlaps     int                       `json:"overlaps"`
	Warnings     int                       `json:"warnings"`
	Errors       int                       `json:"errors"`
	Repairs      int                       `json:"repairs"`
	Dropped      int                       `json:"dropped"`
	RepairPasses int                       `json:"repair_passes"`
}

// DateRange spans the creation times of all records.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Manifest indexes an output directory.
type Manifest struct {
	Seed       int64       `json:"seed"`
	Checksum   string      `json:"checksum"`
	Files      []FileEntry `json:"files"`
	Statistics Statistics  `json:"statistics"`
	DateRange  *DateRange  `json:"date_range,omitempty"`
	Teams      []string    `json:"teams"`
}

// File returns the entry for path p.
func (m *Manifest) File(p string) (FileEntry, bool) {
	for _, f := range m.Files {
		if f.Path == p {
			return f, true
		}
	}
	return FileEntry{}, false
}

func buildManifest(out *pipeline.Output, files []FileEntry) *Manifest {
	ds, rep := out.Dataset, out.Report
	man := &Manifest{
		Seed:     rep.Seed,
		Checksum: rep.Checksum,
		Files:    files,
		Statistics: Statistics{
			Counts:       ds.Counts(),
			Total:        ds.Len(),
			Edges:        len(ds.Edges()),
			Overlaps:     len(ds.Overlaps()),
			Warnings:     rep.Warnings,
			Errors:       rep.Errors,
			Repairs:      rep.Repairs,
			Dropped:      len(rep.Dropped),
			RepairPasses: rep.Passes,
		},
		Teams: []string{},
	}
	for _, rec := range ds.Records(models.TypeTeam) {
		man.Teams = append(man.Teams, rec.ID)
	}
	ds.All(func(rec models.Record) {
		if man.DateRange == nil {
			man.DateRange = &DateRange{Start: rec.CreatedAt.UTC(), End: rec.CreatedAt.UTC()}
			return
		}
		if rec.CreatedAt.Before(man.DateRange.Start) {
			man.DateRange.Start = rec.CreatedAt.UTC()
		}
		if rec.CreatedAt.After(man.DateRange.End) {
			man.DateRange.End = rec.CreatedAt.UTC()
		}
	})
	return man
}
