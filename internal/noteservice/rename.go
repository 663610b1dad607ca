package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/index"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/resolve"
)

// UpdatedNote is a note whose links were rewritten by a rename.
type UpdatedNote struct {
	Vault string `json:"vault"`
	Fname string `json:"fname"`
	Links int    `json:"links"`
}

// RenameResult summarizes a rename.
type RenameResult struct {
	From    link.Location `json:"from"`
	To      link.Location `json:"to"`
	Updated []UpdatedNote `json:"updated"`
	Skipped []string      `json:"skipped,omitempty"`
}

// RenameNote moves the note at from to to and rewrites every link that
// resolved to it. Links keep their syntax, alias and vault style. An empty
// to.Vault keeps the note in its vault.
func (s *Service) RenameNote(ctx context.Context, from, to link.Location) (*RenameResult, error) {
	if from.Fname == "" || from.Vault == "" || to.Fname == "" {
		return nil, fmt.Errorf("rename needs a source vault and fname and a target fname: %w", apperr.ErrInvalidInput)
	}
	if to.Vault == "" {
		to.Vault = from.Vault
	}
	from.Anchor, to.Anchor = "", ""
	if from.Vault == to.Vault && from.Fname == to.Fname {
		return &RenameResult{From: from, To: to, Updated: []UpdatedNote{}}, nil
	}

	old, _, err := s.readNote(from.Vault, from.Fname)
	if err != nil {
		return nil, err
	}

	// Plan against the index before anything moves.
	plan, err := s.planRename(old, to)
	if err != nil {
		return nil, err
	}

	if err := s.store.Move(from.Vault, from.Fname, to.Vault, to.Fname); err != nil {
		return nil, err
	}
	if err := s.db.DeleteNote(from.Vault, from.Fname); err != nil {
		return nil, err
	}

	res := &RenameResult{From: from, To: to, Updated: []UpdatedNote{}}
	movedIndexed := false
	for _, key := range sortedKeys(plan) {
		src := plan[key]
		vault, fname := src.Vault, src.Fname
		moved := key == old.Key()
		if moved {
			vault, fname = to.Vault, to.Fname
		}
		n, err := s.rewriteNote(vault, fname, src.changes)
		if err != nil {
			s.opts.Logger.WarnContext(ctx, "rename: rewrite failed",
				slog.String("note", models.NoteKey(vault, fname)), slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, models.NoteKey(vault, fname))
			continue
		}
		movedIndexed = movedIndexed || moved
		res.Updated = append(res.Updated, UpdatedNote{Vault: vault, Fname: fname, Links: n})
	}

	if !movedIndexed {
		data, err := s.store.Read(to.Vault, to.Fname)
		if err != nil {
			return nil, err
		}
		if _, err := index.IndexFile(s.db, to.Vault, to.Fname, data); err != nil {
			return nil, err
		}
	}

	s.opts.Logger.InfoContext(ctx, "renamed note",
		slog.String("from", old.Key()), slog.String("to", models.NoteKey(to.Vault, to.Fname)),
		slog.Int("updated", len(res.Updated)))
	return res, nil
}

type pendingRewrite struct {
	Vault, Fname string
	changes      []link.Change
}

// planRename collects, per referring note, the links that resolve to old
// and what they become.
func (s *Service) planRename(old *models.Note, to link.Location) (map[string]*pendingRewrite, error) {
	rows, err := s.db.Backlinks(old.Vault, old.Fname)
	if err != nil {
		return nil, err
	}
	sources := map[string]bool{}
	for _, r := range rows {
		sources[models.NoteKey(r.SrcVault, r.SrcFname)] = true
	}
	// The renamed note may name itself by fname without being indexed yet.
	sources[old.Key()] = true

	r, err := s.frozenResolver()
	if err != nil {
		return nil, err
	}

	plan := map[string]*pendingRewrite{}
	for key := range sources {
		vault, fname := splitKey(key)
		src, _, err := s.readNote(vault, fname)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, l := range link.Find(src, link.Filter{To: link.Location{Fname: old.Fname}}) {
			if !s.pointsAt(r, l, old) {
				continue
			}
			nl := l
			nl.To.Fname = to.Fname
			nl.To.Vault = ""
			if to.Vault != old.Vault || l.To.Vault != "" {
				nl.To.Vault = to.Vault
			}
			p := plan[key]
			if p == nil {
				p = &pendingRewrite{Vault: vault, Fname: fname}
				plan[key] = p
			}
			p.changes = append(p.changes, link.Change{Old: l, New: nl})
		}
	}
	return plan, nil
}

// pointsAt reports whether l resolves to target under the service policy.
func (s *Service) pointsAt(r *resolve.Resolver, l link.Link, target *models.Note) bool {
	res, err := r.ResolveLink(l)
	if err != nil {
		return false
	}
	n, err := res.Pick(s.opts.Policy, l.From)
	if err != nil {
		return false
	}
	return n.Vault == target.Vault && n.Fname == target.Fname
}

// rewriteNote applies changes to the body of vault/fname and saves it.
func (s *Service) rewriteNote(vault, fname string, changes []link.Change) (int, error) {
	n, data, err := s.readNote(vault, fname)
	if err != nil {
		return 0, err
	}
	front, _ := parser.SplitFrontmatter(data)
	body, err := link.UpdateAll(n, changes)
	if err != nil {
		return 0, err
	}
	if err := s.save(vault, fname, parser.Compose(front, body)); err != nil {
		return 0, err
	}
	return len(changes), nil
}

func sortedKeys(m map[string]*pendingRewrite) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitKey(key string) (vault, fname string) {
	vault, fname, _ = strings.Cut(key, "/")
	return vault, fname
}
