package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Sync walks the partitions and brings the index up to date:
//   - new/changed records are decoded and upserted
//   - records removed from disk are deleted from the index
//
// Corrupt records are skipped with a warning, matching the scan
// recovery behavior of the entry store.
func Sync(db *DB, files storage.Provider, logger *slog.Logger) error {
	infos, err := files.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, fi := range infos {
		category, id, ok := splitRecordPath(fi.Path)
		if !ok {
			continue
		}
		key := category + "/" + id
		disk[key] = struct{}{}

		if checksums[key] == fi.Checksum {
			continue
		}

		data, err := files.Read(fi.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexRecord(db, fi, category, id, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", fi.Path))
		}
	}

	// Remove stale entries.
	for key := range checksums {
		if _, ok := disk[key]; !ok {
			category, id, found := strings.Cut(key, "/")
			if !found {
				continue
			}
			if err := db.DeleteEntry(category, id); err != nil {
				logger.Warn("sync: delete failed", slog.String("key", key), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("key", key))
			}
		}
	}

	return nil
}

// indexRecord decodes data and upserts its summary into the DB.
func indexRecord(db *DB, fi models.FileInfo, category, id string, data []byte) error {
	rec, err := models.Decode(data)
	if err != nil {
		return err
	}
	title := rec.DisplayName()
	if title == "" {
		title = id
	}
	return db.UpsertEntry(EntryRow{
		Category:  category,
		ID:        id,
		Title:     title,
		Kind:      rec.Kind(),
		Checksum:  fi.Checksum,
		UpdatedAt: fi.UpdatedAt,
	})
}

// splitRecordPath parses a store-relative record path into its category
// and identifier. Only the canonical one-level layout
// (category/id.json) is indexed.
func splitRecordPath(p string) (category, id string, ok bool) {
	dir, file := path.Split(p)
	category = strings.Trim(dir, "/")
	id = strings.TrimSuffix(file, ".json")
	if category == "" || id == "" || strings.Contains(category, "/") {
		return "", "", false
	}
	return category, id, true
}
