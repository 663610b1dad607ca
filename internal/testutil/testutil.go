// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/noteweave/internal/index"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "noteweave-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Workspace is a set of temporary vaults.
type Workspace struct {
	*storage.Workspace
	Dirs map[string]string // vault name → directory
}

// TestWorkspace creates one temporary directory per vault name, in order.
func TestWorkspace(t *testing.T, names ...string) *Workspace {
	t.Helper()
	dirs := make(map[string]string, len(names))
	vaults := make([]models.Vault, len(names))
	for i, name := range names {
		dirs[name] = t.TempDir()
		vaults[i] = models.Vault{Name: name, Path: dirs[name]}
	}
	ws, err := storage.NewWorkspace(vaults)
	if err != nil {
		t.Fatal(err)
	}
	return &Workspace{Workspace: ws, Dirs: dirs}
}

// WriteNote writes a note file directly into a vault directory.
func (w *Workspace) WriteNote(t *testing.T, vault, fname, content string) {
	t.Helper()
	dir, ok := w.Dirs[vault]
	if !ok {
		t.Fatalf("unknown vault %q", vault)
	}
	if err := os.WriteFile(filepath.Join(dir, fname+storage.NoteExt), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadNote returns the content of a note file, failing the test when it is missing.
func (w *Workspace) ReadNote(t *testing.T, vault, fname string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Dirs[vault], fname+storage.NoteExt))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Sync indexes every vault of w into db.
func (w *Workspace) Sync(t *testing.T, db *index.DB) {
	t.Helper()
	if _, err := index.Sync(context.Background(), db, w.Workspace, Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

// Logger discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
