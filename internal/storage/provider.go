// Package storage maps vault notes onto the file system.
package storage

import "github.com/starford/noteweave/internal/models"

// Provider is the interface for note file operations across the vaults of
// a workspace. Notes are addressed by vault name and fname.
type Provider interface {
	// Vaults returns the configured vaults in workspace order.
	Vaults() []models.Vault
	// List returns metadata for every note of vault, or of all vaults when
	// vault is empty.
	List(vault string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of a note file.
	Read(vault, fname string) ([]byte, error)
	// Write atomically writes content to a note file.
	Write(vault, fname string, content []byte) error
	// Delete removes a note file.
	Delete(vault, fname string) error
	// Move renames a note, possibly into another vault.
	Move(fromVault, fromFname, toVault, toFname string) error
}
