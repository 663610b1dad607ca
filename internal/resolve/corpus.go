package resolve

import (
	"sort"

	"github.com/starford/noteweave/internal/models"
)

// MemCorpus is an immutable in-memory snapshot of a set of notes.
type MemCorpus struct {
	order  map[string]int
	byName map[string][]*models.Note
}

var _ Corpus = (*MemCorpus)(nil)

// NewMemCorpus snapshots notes. vaults gives the workspace order used to
// sort candidates; vaults not listed sort after the listed ones, by first
// appearance.
func NewMemCorpus(vaults []string, notes ...*models.Note) *MemCorpus {
	c := &MemCorpus{
		order:  make(map[string]int, len(vaults)),
		byName: make(map[string][]*models.Note, len(notes)),
	}
	for i, v := range vaults {
		c.order[v] = i
	}
	for _, n := range notes {
		if _, ok := c.order[n.Vault]; !ok {
			c.order[n.Vault] = len(c.order)
		}
		cp := *n
		c.byName[n.Fname] = append(c.byName[n.Fname], &cp)
	}
	for _, list := range c.byName {
		sort.SliceStable(list, func(i, j int) bool {
			return c.order[list[i].Vault] < c.order[list[j].Vault]
		})
	}
	return c
}

// Lookup implements Corpus.
func (c *MemCorpus) Lookup(fname, vault string) ([]*models.Note, error) {
	var out []*models.Note
	for _, n := range c.byName[fname] {
		if vault == "" || n.Vault == vault {
			out = append(out, n)
		}
	}
	return out, nil
}

// Notes returns every note of the snapshot sorted by vault/fname.
func (c *MemCorpus) Notes() []*models.Note {
	var out []*models.Note
	for _, list := range c.byName {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
