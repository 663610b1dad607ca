// Package noteservice coordinates vault storage, the index and the link
// packages behind the REST, MCP and CLI surfaces.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/noteweave/internal/anchor"
	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/block"
	"github.com/starford/noteweave/internal/index"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/noteref"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/resolve"
	"github.com/starford/noteweave/internal/storage"
)

// Options tune link handling.
type Options struct {
	Policy resolve.Policy
	// MaxRefDepth bounds nested reference expansion.
	MaxRefDepth int
	// NormalizeLegacyRefs converts ((ref: ...)) into ![[...]] in every
	// note the service writes.
	NormalizeLegacyRefs bool
	Logger              *slog.Logger
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	*models.Note
	Content   string          `json:"content"`
	Backlinks []index.LinkRow `json:"backlinks"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	opts     Options
	resolver *resolve.Resolver
	// snapshot freezes the corpus for passes that resolve many links.
	snapshot func() (resolve.Corpus, error)
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = resolve.PolicyStrict
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		opts:     opts,
		resolver: resolve.New(db),
		snapshot: func() (resolve.Corpus, error) { return db.Snapshot() },
	}
}

// frozenResolver resolves against a snapshot of the index taken now, so
// that watcher updates during one pass are not observed halfway.
func (s *Service) frozenResolver() (*resolve.Resolver, error) {
	corpus, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return resolve.New(corpus), nil
}

// Policy returns the disambiguation policy in use.
func (s *Service) Policy() resolve.Policy {
	return s.opts.Policy
}

// Vaults returns the workspace vaults in order.
func (s *Service) Vaults() []models.Vault {
	return s.store.Vaults()
}

// readNote loads vault/fname from disk. The file on disk wins over the index.
func (s *Service) readNote(vault, fname string) (*models.Note, []byte, error) {
	data, err := s.store.Read(vault, fname)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("note %s: %w", models.NoteKey(vault, fname), apperr.ErrNotFound)
		}
		return nil, nil, err
	}
	n, err := parser.ParseNote(vault, fname, data)
	if err != nil {
		return nil, nil, err
	}
	n.Checksum = storage.Checksum(data)
	return n, data, nil
}

// GetNote reads a note from storage and enriches it with backlinks.
func (s *Service) GetNote(_ context.Context, vault, fname string) (*NoteDetail, error) {
	n, data, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(vault, fname)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: n, Content: string(data), Backlinks: nonNilSlice(bl)}, nil
}

// ListNotes returns indexed note metadata.
func (s *Service) ListNotes(_ context.Context, vault string, limit, offset int) ([]models.NoteMetadata, int, error) {
	items, total, err := s.db.ListNotes(vault, limit, offset)
	return nonNilSlice(items), total, err
}

// Anchors returns the header and block anchors of a note.
func (s *Service) Anchors(_ context.Context, vault, fname string) ([]anchor.Anchor, error) {
	n, _, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(anchor.Find(n.Body)), nil
}

// Blocks returns the referenceable blocks of a note.
func (s *Service) Blocks(_ context.Context, vault, fname string) ([]block.Block, error) {
	n, _, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(block.FromNote(n.Body)), nil
}

// Links returns the links of a note that pass filter.
func (s *Service) Links(_ context.Context, vault, fname string, filter link.Filter) ([]link.Link, error) {
	n, _, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(link.Find(n, filter)), nil
}

// Backlinks returns the indexed links that may point at a note.
func (s *Service) Backlinks(_ context.Context, vault, fname string) ([]index.LinkRow, error) {
	bl, err := s.db.Backlinks(vault, fname)
	return nonNilSlice(bl), err
}

// Resolution is the outcome of resolving one location.
type Resolution struct {
	To         link.Location   `json:"to"`
	Candidates []link.Location `json:"candidates"`
	// Note is the candidate picked under the policy, if any.
	Note        *link.Location `json:"note,omitempty"`
	AnchorFound *bool          `json:"anchorFound,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Resolve finds the notes to may denote when written in from. A failed pick
// is reported in the result, not as an error.
func (s *Service) Resolve(_ context.Context, to, from link.Location) (*Resolution, error) {
	res, err := s.resolver.Resolve(to, from)
	if err != nil {
		return nil, err
	}
	out := &Resolution{To: res.To, Candidates: []link.Location{}}
	for _, c := range res.Candidates {
		out.Candidates = append(out.Candidates, link.LocationOf(c))
	}

	picked, err := res.Pick(s.opts.Policy, from)
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}
	loc := link.LocationOf(picked)
	out.Note = &loc
	if to.Anchor != "" {
		_, ok := anchor.Lookup(anchor.Find(picked.Body), to.Anchor)
		out.AnchorFound = &ok
	}
	return out, nil
}

// Expand replaces every note reference in a note with the referenced content.
func (s *Service) Expand(ctx context.Context, vault, fname string) (*noteref.Expansion, error) {
	n, _, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	r, err := s.frozenResolver()
	if err != nil {
		return nil, err
	}
	exp := noteref.New(r, noteref.Options{
		MaxDepth: s.opts.MaxRefDepth,
		Policy:   s.opts.Policy,
		Logger:   s.opts.Logger,
	}).Expand(n)
	s.opts.Logger.DebugContext(ctx, "expanded note",
		slog.String("note", n.Key()), slog.Int("embeds", len(exp.Embeds)))
	return exp, nil
}

// NormalizeResult reports a legacy reference conversion.
type NormalizeResult struct {
	Body      string `json:"body"`
	Converted int    `json:"converted"`
	Written   bool   `json:"written"`
}

// NormalizeRefs converts legacy references of a note. The file is only
// rewritten when write is set and something changed.
func (s *Service) NormalizeRefs(_ context.Context, vault, fname string, write bool) (*NormalizeResult, error) {
	_, data, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	front, body := parser.SplitFrontmatter(data)
	out, count := noteref.NormalizeLegacyCount(body)
	res := &NormalizeResult{Body: out, Converted: count}
	if !write || count == 0 {
		return res, nil
	}
	if err := s.save(vault, fname, parser.Compose(front, out)); err != nil {
		return nil, err
	}
	res.Written = true
	return res, nil
}

// PromoteH1 moves the leading H1 heading of a note into its frontmatter
// title. It wraps apperr.ErrInvalidInput when the note has no H1.
func (s *Service) PromoteH1(_ context.Context, vault, fname string) (*models.Note, error) {
	_, data, err := s.readNote(vault, fname)
	if err != nil {
		return nil, err
	}
	_, body := parser.SplitFrontmatter(data)
	title, rest, ok := parser.H1ToTitle(body)
	if !ok {
		return nil, fmt.Errorf("note %s has no H1 heading: %w", models.NoteKey(vault, fname), apperr.ErrInvalidInput)
	}
	fm := parser.Frontmatter(data)
	if fm == nil {
		fm = map[string]any{}
	}
	fm["title"] = title
	front, err := parser.RenderFrontmatter(fm)
	if err != nil {
		return nil, fmt.Errorf("render frontmatter: %w", err)
	}
	content := parser.Compose(front, rest)
	if err := s.save(vault, fname, content); err != nil {
		return nil, err
	}
	return parser.ParseNote(vault, fname, content)
}

// Sync brings the index up to date with the vaults.
func (s *Service) Sync(ctx context.Context) (index.SyncResult, error) {
	return index.Sync(ctx, s.db, s.store, s.opts.Logger)
}

// save writes content and reindexes the note.
func (s *Service) save(vault, fname string, content []byte) error {
	if s.opts.NormalizeLegacyRefs {
		front, body := parser.SplitFrontmatter(content)
		if out, n := noteref.NormalizeLegacyCount(body); n > 0 {
			content = parser.Compose(front, out)
		}
	}
	if err := s.store.Write(vault, fname, content); err != nil {
		return err
	}
	_, err := index.IndexFile(s.db, vault, fname, content)
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
