package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, category, id string)

// Watch starts an fsnotify watcher on the store base directory and
// processes record change events until ctx is cancelled. It calls cb
// (if non-nil) after each successful index mutation.
//
// New partition directories created at runtime (dynamic categories) are
// automatically added to the watch list. Rename events trigger a
// reconciliation pass that removes stale index entries whose records no
// longer exist on disk.
func Watch(ctx context.Context, db *DB, files storage.Provider, baseDir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, baseDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", baseDir))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, files, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories are new partitions: watch them and pick
			// up any records they already contain.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new partition", slog.String("path", absPath))
					}
					indexNewDir(db, files, baseDir, absPath, logger, cb)
					continue
				}
			}

			// Only process .json records from here on. Temp files from
			// atomic writes carry no .json suffix, so half-written
			// content never reaches the index.
			if !strings.HasSuffix(absPath, ".json") {
				continue
			}

			rel, relErr := filepath.Rel(baseDir, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			category, id, okPath := splitRecordPath(rel)
			if !okPath {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := files.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				fi := models.FileInfo{Path: rel, Checksum: checksum.Sum(data), UpdatedAt: time.Now()}
				if idxErr := indexRecord(db, fi, category, id, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, category, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteEntry(category, id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", category, id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path arrives as a separate Create event (if it stays
				// within a watched dir). Delete the old entry now and
				// schedule a short reconciliation pass for stragglers.
				if delErr := db.DeleteEntry(category, id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", category, id)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile does a lightweight sync using batch lookups: removes index
// entries without a record on disk and indexes records missing from or
// changed in the index.
func reconcile(db *DB, files storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	infos, err := files.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]models.FileInfo, len(infos))
	for _, fi := range infos {
		if category, id, ok := splitRecordPath(fi.Path); ok {
			disk[category+"/"+id] = fi
		}
	}

	for key := range checksums {
		if _, ok := disk[key]; !ok {
			category, id, found := strings.Cut(key, "/")
			if !found {
				continue
			}
			if delErr := db.DeleteEntry(category, id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("key", key))
				if cb != nil {
					cb("deleted", category, id)
				}
			}
		}
	}

	for key, fi := range disk {
		if checksums[key] == fi.Checksum {
			continue
		}
		category, id, found := strings.Cut(key, "/")
		if !found {
			continue
		}
		data, readErr := files.Read(fi.Path)
		if readErr != nil {
			continue
		}
		if idxErr := indexRecord(db, fi, category, id, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("key", key))
			if cb != nil {
				cb("created", category, id)
			}
		}
	}
}

// indexNewDir indexes any .json records found in a newly created
// partition directory.
func indexNewDir(db *DB, files storage.Provider, baseDir, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		rel, relErr := filepath.Rel(baseDir, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		category, id, ok := splitRecordPath(rel)
		if !ok {
			return nil
		}
		data, readErr := files.Read(rel)
		if readErr != nil {
			return nil
		}
		fi := models.FileInfo{Path: rel, Checksum: checksum.Sum(data), UpdatedAt: time.Now()}
		if idxErr := indexRecord(db, fi, category, id, data); idxErr == nil {
			logger.Debug("watcher: indexed from new partition", slog.String("path", rel))
			if cb != nil {
				cb("created", category, id)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
