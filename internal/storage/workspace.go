package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/models"
)

// Workspace implements Provider over an ordered set of vault stores.
type Workspace struct {
	order  []*FS
	byName map[string]*FS
}

var _ Provider = (*Workspace)(nil)

// NewWorkspace opens every vault. Vault names must be unique.
func NewWorkspace(vaults []models.Vault) (*Workspace, error) {
	w := &Workspace{byName: make(map[string]*FS, len(vaults))}
	for _, v := range vaults {
		if _, dup := w.byName[v.Name]; dup {
			return nil, fmt.Errorf("storage: duplicate vault %q: %w", v.Name, apperr.ErrInvalidInput)
		}
		fs, err := NewFS(v.Name, v.Path)
		if err != nil {
			return nil, fmt.Errorf("storage: vault %q: %w", v.Name, err)
		}
		w.order = append(w.order, fs)
		w.byName[v.Name] = fs
	}
	return w, nil
}

// Vault returns the store of a vault.
func (w *Workspace) Vault(name string) (*FS, error) {
	fs, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("storage: vault %q: %w", name, apperr.ErrNotFound)
	}
	return fs, nil
}

// Stores returns the vault stores in workspace order.
func (w *Workspace) Stores() []*FS {
	return w.order
}

// Vaults implements Provider.
func (w *Workspace) Vaults() []models.Vault {
	out := make([]models.Vault, len(w.order))
	for i, fs := range w.order {
		out[i] = models.Vault{Name: fs.name, Path: fs.root}
	}
	return out
}

// List implements Provider.
func (w *Workspace) List(vault string) ([]models.NoteMetadata, error) {
	if vault != "" {
		fs, err := w.Vault(vault)
		if err != nil {
			return nil, err
		}
		return fs.List()
	}
	var out []models.NoteMetadata
	for _, fs := range w.order {
		metas, err := fs.List()
		if err != nil {
			return nil, err
		}
		out = append(out, metas...)
	}
	return out, nil
}

// Read implements Provider.
func (w *Workspace) Read(vault, fname string) ([]byte, error) {
	fs, err := w.Vault(vault)
	if err != nil {
		return nil, err
	}
	return fs.Read(fname)
}

// Write implements Provider.
func (w *Workspace) Write(vault, fname string, content []byte) error {
	fs, err := w.Vault(vault)
	if err != nil {
		return err
	}
	return fs.Write(fname, content)
}

// Delete implements Provider.
func (w *Workspace) Delete(vault, fname string) error {
	fs, err := w.Vault(vault)
	if err != nil {
		return err
	}
	return fs.Delete(fname)
}

// Move implements Provider. The target must not exist.
func (w *Workspace) Move(fromVault, fromFname, toVault, toFname string) error {
	src, err := w.Vault(fromVault)
	if err != nil {
		return err
	}
	dst, err := w.Vault(toVault)
	if err != nil {
		return err
	}
	oldPath, err := src.notePath(fromFname)
	if err != nil {
		return err
	}
	newPath, err := dst.notePath(toFname)
	if err != nil {
		return err
	}
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("storage: move to %s/%s: %w", toVault, toFname, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: stat target: %w", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}
