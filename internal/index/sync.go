package index

import (
	"log/slog"

	"github.com/starford/ywmark/internal/checksum"
	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed files are decoded and indexed
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, opts convert.Options, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, opts); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteProject(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile decodes data and stores it under path.
func IndexFile(db *DB, path string, data []byte, opts convert.Options) error {
	p, format, err := convert.Decode(path, data, opts)
	if err != nil {
		return err
	}
	return db.IndexProject(path, format.String(), checksum.Sum(data), p)
}

// IndexPath reads path from store and indexes it.
func IndexPath(db *DB, store storage.Provider, path string, opts convert.Options) error {
	data, err := store.Read(path)
	if err != nil {
		return err
	}
	return IndexFile(db, path, data, opts)
}
