package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/storage"
)

// watcherTestEnv sets up a vault dir, workspace, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *storage.Workspace, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	ws, err := storage.NewWorkspace([]models.Vault{{Name: "vault1", Path: vaultDir}})
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, ws, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	vaultDir, ws, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, ws, quietLogger(), func(kind, vault, fname string) {
		mu.Lock()
		events = append(events, kind+":"+vault+"/"+fname)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New\n\n[[other]]"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("vault1", "new")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:vault1/new" {
				return true
			}
		}
		return false
	}, "expected created:vault1/new callback")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		bl, _ := db.Backlinks("vault1", "other")
		return len(bl) == 1
	}, "links of the new note not indexed")
}

func TestWatcher_IgnoresSubdirsAndOtherFiles(t *testing.T) {
	vaultDir, ws, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, ws, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(vaultDir, "assets"), 0o755)
	_ = os.WriteFile(filepath.Join(vaultDir, "assets", "deep.md"), []byte("# Deep"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "notes.txt"), []byte("plain"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "marker.md"), []byte("# Marker"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("vault1", "marker")
		return cs != ""
	}, "marker note not indexed")

	_, total, _ := db.ListNotes("", 0, 0)
	if total != 1 {
		t.Errorf("indexed %d notes, want only the top-level note", total)
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, ws, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	if _, err := Sync(context.Background(), db, ws, logger); err != nil {
		t.Fatal(err)
	}

	cs, _ := db.GetChecksum("vault1", "del")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, ws, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("vault1", "del")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, ws, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644)
	if _, err := Sync(context.Background(), db, ws, logger); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, ws, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("vault1", "old")
		newCS, _ := db.GetChecksum("vault1", "renamed")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old note should be removed and new note indexed")
}
