package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ywmark/internal/checksum"
	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/storage"
)

// Watcher event kinds passed to EventCallback.
const (
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const defaultDebounce = 300 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

// WatchConfig configures Watch.
type WatchConfig struct {
	// Root is the absolute library directory.
	Root string
	// Options decode Markdown files for indexing.
	Options convert.Options
	// Session re-imports edited Markdown into its project. Nil disables
	// re-import; Markdown files are then only indexed.
	Session *convert.Session
	// Debounce is the quiet period before pending changes are processed.
	Debounce time.Duration
}

// Watch starts an fsnotify watcher on the library root and processes file
// changes until ctx is cancelled. Events are collected per path and handled
// once the library has been quiet for the debounce period, so an editor
// saving in several steps causes one re-import.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events additionally trigger a reconciliation pass that
// removes index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, cfg WatchConfig, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, cfg.Root); err != nil {
		return err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", cfg.Root))

	pending := make(map[string]struct{})
	reconcile := false

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(cfg.Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(cfg.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			for _, p := range paths {
				processPath(ctx, db, store, cfg, p, logger, cb)
			}
			if reconcile {
				reconcile = false
				reconcileIndex(db, store, cfg.Options, logger, cb)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					for _, rel := range trackedIn(cfg.Root, absPath) {
						pending[rel] = struct{}{}
					}
					schedule()
					continue
				}
			}

			if !storage.Tracked(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(cfg.Root, absPath)
			if relErr != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			if ev.Op&fsnotify.Rename != 0 {
				reconcile = true
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// processPath brings the index entry for rel in line with the file on disk.
// Edited Markdown is imported into its project first when a session is set.
func processPath(ctx context.Context, db *DB, store storage.Provider, cfg WatchConfig, rel string, logger *slog.Logger, cb EventCallback) {
	exists, err := store.Exists(rel)
	if err != nil {
		logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if !exists {
		if cs, _ := db.GetChecksum(rel); cs == "" {
			return
		}
		if err := db.DeleteProject(rel); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", rel))
		notify(cb, EventDeleted, rel)
		return
	}

	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if old, _ := db.GetChecksum(rel); old == checksum.Sum(data) {
		return
	}

	if format, _ := convert.FormatOf(rel); format == convert.FormatMarkdown && cfg.Session != nil {
		if res, convErr := cfg.Session.Convert(ctx, rel); convErr != nil {
			logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", convErr.Error()))
		} else if idxErr := IndexPath(db, store, res.Target, cfg.Options); idxErr != nil {
			logger.Warn("watcher: index failed", slog.String("path", res.Target), slog.String("error", idxErr.Error()))
		} else {
			notify(cb, EventUpdated, res.Target)
		}
	}

	if err := IndexFile(db, rel, data, cfg.Options); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", rel))
	notify(cb, EventUpdated, rel)
}

func notify(cb EventCallback, kind, path string) {
	if cb != nil {
		cb(kind, path)
	}
}

// reconcileIndex does a lightweight sync using batch lookups: it removes
// index entries without a file on disk and indexes files that are missing
// or changed.
func reconcileIndex(db *DB, store storage.Provider, opts convert.Options, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteProject(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				notify(cb, EventDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if idxErr := IndexPath(db, store, p, opts); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			notify(cb, EventUpdated, p)
		}
	}
}

// trackedIn lists tracked files below dir as paths relative to root.
func trackedIn(root, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.Tracked(path) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out
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
