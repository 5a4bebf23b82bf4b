package store

import (
	"log/slog"

	"github.com/starford/orgsynth/internal/output"
	"github.com/starford/orgsynth/internal/storage"
)

// Sync loads the output directory into db unless the stored dataset already
// has the manifest's checksum. It reports whether db changed.
func Sync(db Store, fs storage.Provider, logger *slog.Logger) (bool, error) {
	man, err := output.ReadManifest(fs)
	if err != nil {
		return false, err
	}
	current, err := db.Checksum()
	if err != nil {
		return false, err
	}
	if current == man.Checksum {
		logger.Debug("sync: dataset unchanged", slog.String("checksum", current))
		return false, nil
	}

	b, err := output.Read(fs)
	if err != nil {
		return false, err
	}
	if err := db.Save(b.Dataset, b.Report); err != nil {
		return false, err
	}
	logger.Info("sync: dataset loaded",
		slog.String("checksum", man.Checksum),
		slog.Int("records", b.Dataset.Len()),
	)
	return true, nil
}
