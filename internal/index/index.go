package index

import (
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/resolve"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	resolve.Corpus
	UpsertNote(n *models.Note, links []link.Link) error
	DeleteNote(vault, fname string) error
	GetChecksum(vault, fname string) (string, error)
	GetNote(vault, fname string) (*models.Note, error)
	ListNotes(vault string, limit, offset int) ([]models.NoteMetadata, int, error)
	Backlinks(vault, fname string) ([]LinkRow, error)
	Snapshot() (*resolve.MemCorpus, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
