// Package slug turns heading text and anchor names into URL-safe identifiers.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugify lowercases s, drops punctuation and symbols, and replaces each
// space with a hyphen. Letters, digits, hyphens and underscores are kept.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(strings.ToLower(s)) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugger produces slugs that are unique within one note. The first
// occurrence of a slug is returned as is; later ones get -1, -2, ...
// The zero value is not usable; call New.
type Slugger struct {
	seen map[string]int
}

// New returns an empty Slugger.
func New() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Slug slugifies s and makes it unique against every slug handed out so far.
func (g *Slugger) Slug(s string) string {
	return g.Unique(Slugify(s))
}

// Unique returns base, or base with the next free numeric suffix.
func (g *Slugger) Unique(base string) string {
	out := base
	if n, ok := g.seen[base]; ok {
		for {
			out = base + "-" + strconv.Itoa(n)
			n++
			if _, taken := g.seen[out]; !taken {
				break
			}
		}
		g.seen[base] = n
	}
	if _, ok := g.seen[out]; !ok {
		g.seen[out] = 1
	}
	return out
}

// Reserve marks value as taken without returning a variant of it.
func (g *Slugger) Reserve(value string) {
	if _, ok := g.seen[value]; !ok {
		g.seen[value] = 1
	}
}

// Taken reports whether value has already been handed out or reserved.
func (g *Slugger) Taken(value string) bool {
	_, ok := g.seen[value]
	return ok
}
