package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/models"
)

// NoteExt is the file extension of notes.
const NoteExt = ".md"

// FS stores the notes of one vault as <fname>.md files directly under its
// root. Hierarchy lives in the dotted fname, not in directories.
type FS struct {
	name string
	root string // absolute path to vault directory
}

// NewFS creates a vault store rooted at the given directory.
// The directory must already exist.
func NewFS(name, root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{name: name, root: abs}, nil
}

// Name returns the vault name.
func (f *FS) Name() string { return f.name }

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// FnameOf returns the fname of a note file path, or false for files that are
// not notes of this vault.
func (f *FS) FnameOf(path string) (string, bool) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.ContainsRune(rel, filepath.Separator) {
		return "", false
	}
	if !strings.HasSuffix(rel, NoteExt) || strings.HasPrefix(rel, ".") {
		return "", false
	}
	return strings.TrimSuffix(rel, NoteExt), true
}

// notePath resolves an fname against the vault root and rejects names that
// would leave it.
func (f *FS) notePath(fname string) (string, error) {
	if fname == "" || strings.ContainsAny(fname, `/\`) || strings.HasPrefix(fname, ".") || filepath.IsAbs(fname) {
		return "", fmt.Errorf("storage: invalid fname %q: %w", fname, apperr.ErrInvalidInput)
	}
	abs := filepath.Join(f.root, fname+NoteExt)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: fname escapes vault root: %q: %w", fname, apperr.ErrInvalidInput)
	}
	return abs, nil
}

// List returns metadata for every note of the vault.
func (f *FS) List() ([]models.NoteMetadata, error) {
	var out []models.NoteMetadata
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root {
				return filepath.SkipDir
			}
			return nil
		}
		fname, ok := f.FnameOf(p)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, models.NoteMetadata{
			Vault:     f.name,
			Fname:     fname,
			Path:      p,
			Checksum:  Checksum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", f.name, err)
	}
	return out, nil
}

// Read returns the raw bytes of a note.
func (f *FS) Read(fname string) ([]byte, error) {
	abs, err := f.notePath(fname)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s/%s: %w", f.name, fname, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(fname string, content []byte) error {
	abs, err := f.notePath(fname)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".noteweave-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a note file.
func (f *FS) Delete(fname string) error {
	abs, err := f.notePath(fname)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", f.name, fname, err)
	}
	return nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
