package index

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/storage"
)

// SyncResult counts what a Sync pass changed.
type SyncResult struct {
	Indexed   int `json:"indexed"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Sync walks every vault and brings the index up to date:
//   - new/changed files are parsed in parallel and upserted
//   - files removed from disk are deleted from the index
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (SyncResult, error) {
	var res SyncResult

	vaults := store.Vaults()
	names := make([]string, len(vaults))
	for i, v := range vaults {
		names[i] = v.Name
	}
	db.SetVaultOrder(names)

	metas, err := store.List("")
	if err != nil {
		return res, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return res, err
	}

	disk := make(map[string]struct{}, len(metas))
	var changed []models.NoteMetadata
	for _, m := range metas {
		key := models.NoteKey(m.Vault, m.Fname)
		disk[key] = struct{}{}
		if checksums[key] == m.Checksum {
			res.Unchanged++
			continue
		}
		changed = append(changed, m)
	}

	// Parse in parallel; SQLite writes stay serial.
	parsed := make([]*parsedNote, len(changed))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(m.Vault, m.Fname)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("vault", m.Vault), slog.String("fname", m.Fname), slog.String("error", err.Error()))
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			parsed[i] = parseFile(m.Vault, m.Fname, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, p := range parsed {
		if p == nil {
			continue
		}
		if err := db.UpsertNote(p.note, p.links); err != nil {
			logger.Warn("sync: index failed", slog.String("note", p.note.Key()), slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		logger.Debug("sync: indexed", slog.String("note", p.note.Key()))
		res.Indexed++
	}

	// Remove stale entries.
	for key := range checksums {
		if _, ok := disk[key]; ok {
			continue
		}
		vault, fname := splitKey(key)
		if err := db.DeleteNote(vault, fname); err != nil {
			logger.Warn("sync: delete failed", slog.String("note", key), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("note", key))
		res.Removed++
	}

	return res, nil
}

type parsedNote struct {
	note  *models.Note
	links []link.Link
}

func parseFile(vault, fname string, data []byte) *parsedNote {
	// ParseNote never rejects content; malformed frontmatter stays body text.
	n, _ := parser.ParseNote(vault, fname, data)
	n.Checksum = storage.Checksum(data)
	return &parsedNote{note: n, links: link.Find(n, link.Filter{})}
}

// IndexFile parses data as the note vault/fname and upserts it.
func IndexFile(db *DB, vault, fname string, data []byte) (*models.Note, error) {
	p := parseFile(vault, fname, data)
	if err := db.UpsertNote(p.note, p.links); err != nil {
		return nil, err
	}
	return p.note, nil
}

// splitKey is the inverse of models.NoteKey. Vault names never hold '/'.
func splitKey(key string) (vault, fname string) {
	vault, fname, _ = strings.Cut(key, "/")
	return vault, fname
}
