// Package resolve maps link locations to the notes they name.
package resolve

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_corpus.go -package=mocks github.com/starford/noteweave/internal/resolve Corpus

import (
	"fmt"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
)

// Corpus is the read-only note index a Resolver searches.
type Corpus interface {
	// Lookup returns the notes named fname, exactly and case-sensitively.
	// An empty vault searches every vault, in workspace order.
	Lookup(fname, vault string) ([]*models.Note, error)
}

// Policy decides between candidates found in several vaults.
type Policy string

const (
	// PolicyStrict reports apperr.ErrAmbiguous.
	PolicyStrict Policy = "strict"
	// PolicyFirst takes the candidate of the first vault in workspace order.
	PolicyFirst Policy = "first"
	// PolicySameVault prefers the vault of the referring note and is strict
	// otherwise.
	PolicySameVault Policy = "same-vault"
)

// Policies lists every valid policy.
var Policies = []Policy{PolicyStrict, PolicyFirst, PolicySameVault}

// ParsePolicy validates s. The empty string selects PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return PolicyStrict, nil
	}
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("resolve: unknown policy %q: %w", s, apperr.ErrInvalidInput)
}

// Resolution holds every note a location may refer to.
type Resolution struct {
	To         link.Location  `json:"to"`
	Candidates []*models.Note `json:"candidates"`
}

// Found reports whether at least one note matched.
func (r Resolution) Found() bool {
	return len(r.Candidates) > 0
}

// Ambiguous reports whether more than one note matched.
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// Pick narrows the resolution to one note under policy p. from is the
// referring note.
func (r Resolution) Pick(p Policy, from link.Location) (*models.Note, error) {
	switch len(r.Candidates) {
	case 0:
		return nil, fmt.Errorf("resolve: %s: %w", describe(r.To), apperr.ErrNotFound)
	case 1:
		return r.Candidates[0], nil
	}
	switch p {
	case PolicyFirst:
		return r.Candidates[0], nil
	case PolicySameVault:
		for _, n := range r.Candidates {
			if n.Vault == from.Vault {
				return n, nil
			}
		}
	}
	return nil, fmt.Errorf("resolve: %s matches %d notes: %w", describe(r.To), len(r.Candidates), apperr.ErrAmbiguous)
}

func describe(l link.Location) string {
	if l.Vault != "" {
		return l.Vault + "/" + l.Fname
	}
	return l.Fname
}

// Resolver resolves locations against a corpus.
type Resolver struct {
	corpus Corpus
}

// New creates a Resolver over corpus.
func New(corpus Corpus) *Resolver {
	return &Resolver{corpus: corpus}
}

// Resolve returns the candidates for to. A location without fname points at
// from itself.
func (r *Resolver) Resolve(to, from link.Location) (Resolution, error) {
	if to.Fname == "" {
		to.Fname = from.Fname
		if to.Vault == "" {
			to.Vault = from.Vault
		}
	}
	res := Resolution{To: to}
	if to.Fname == "" {
		return res, nil
	}

	notes, err := r.corpus.Lookup(to.Fname, to.Vault)
	if err != nil {
		return res, fmt.Errorf("resolve: lookup %s: %w", describe(to), err)
	}
	for _, n := range notes {
		if n.Fname != to.Fname {
			continue
		}
		if to.Vault != "" && n.Vault != to.Vault {
			continue
		}
		if to.ID != "" && n.ID != to.ID {
			continue
		}
		res.Candidates = append(res.Candidates, n)
	}
	return res, nil
}

// ResolveLink resolves the target of l.
func (r *Resolver) ResolveLink(l link.Link) (Resolution, error) {
	return r.Resolve(l.To, l.From)
}
