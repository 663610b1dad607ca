package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/storage"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind, vault, fname string)

// reconcileDelay debounces the reconciliation pass that follows renames.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on every vault root of ws and processes
// note file changes until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Vaults are flat, so subdirectories are not watched. Rename events trigger
// a reconciliation pass that removes stale index entries and indexes notes
// that appeared under a new name.
func Watch(ctx context.Context, db *DB, ws *storage.Workspace, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	byRoot := make(map[string]*storage.FS, len(ws.Stores()))
	for _, fs := range ws.Stores() {
		if err := w.Add(fs.Root()); err != nil {
			return err
		}
		byRoot[fs.Root()] = fs
		logger.Info("watcher: started", slog.String("vault", fs.Name()), slog.String("root", fs.Root()))
	}

	notify := func(kind, vault, fname string) {
		if cb != nil {
			cb(kind, vault, fname)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
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
			reconcile(db, ws, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			fs, ok := byRoot[filepath.Dir(ev.Name)]
			if !ok {
				continue
			}
			fname, ok := fs.FnameOf(ev.Name)
			if !ok {
				continue
			}
			vault := fs.Name()
			attrs := []any{slog.String("vault", vault), slog.String("fname", fname)}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := fs.Read(fname)
				if readErr != nil {
					logger.Warn("watcher: read failed", append(attrs, slog.String("error", readErr.Error()))...)
					continue
				}
				if _, idxErr := IndexFile(db, vault, fname, data); idxErr != nil {
					logger.Warn("watcher: index failed", append(attrs, slog.String("error", idxErr.Error()))...)
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", append(attrs, slog.String("op", kind))...)
				notify(kind, vault, fname)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteNote(vault, fname); delErr != nil {
					logger.Warn("watcher: delete failed", append(attrs, slog.String("error", delErr.Error()))...)
					continue
				}
				logger.Debug("watcher: deleted", attrs...)
				notify(EventDeleted, vault, fname)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old name only; the new one arrives
				// as a Create when it stays inside a watched vault.
				if delErr := db.DeleteNote(vault, fname); delErr != nil {
					logger.Warn("watcher: rename delete failed", append(attrs, slog.String("error", delErr.Error()))...)
				} else {
					logger.Debug("watcher: rename old deleted", attrs...)
					notify(EventDeleted, vault, fname)
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

// reconcile removes index entries without a file on disk and indexes files
// whose checksum differs from the index.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify EventCallback) {
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

	disk := make(map[string]models.NoteMetadata, len(metas))
	for _, m := range metas {
		disk[models.NoteKey(m.Vault, m.Fname)] = m
	}

	for key := range checksums {
		if _, ok := disk[key]; ok {
			continue
		}
		vault, fname := splitKey(key)
		if db.DeleteNote(vault, fname) == nil {
			logger.Debug("reconcile: removed stale", slog.String("note", key))
			notify(EventDeleted, vault, fname)
		}
	}

	for key, m := range disk {
		prev, indexed := checksums[key]
		if prev == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Vault, m.Fname)
		if readErr != nil {
			continue
		}
		if _, idxErr := IndexFile(db, m.Vault, m.Fname, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("note", key))
			kind := EventCreated
			if indexed {
				kind = EventUpdated
			}
			notify(kind, m.Vault, m.Fname)
		}
	}
}
