// Package link finds wikilinks and note references in note bodies and
// rewrites them in place.
package link

import (
	"fmt"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
)

// Type separates plain links from content embeds.
type Type int

const (
	TypeWiki Type = iota
	TypeRef
)

func (t Type) String() string {
	switch t {
	case TypeWiki:
		return "wiki"
	case TypeRef:
		return "ref"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "wiki":
		return TypeWiki, nil
	case "ref":
		return TypeRef, nil
	}
	return 0, fmt.Errorf("link: unknown type %q", s)
}

// Location is a possibly partial address of a note or a point inside it.
// Empty fields are unset.
type Location struct {
	Fname  string `json:"fname,omitempty"`
	Vault  string `json:"vaultName,omitempty"`
	Anchor string `json:"anchor,omitempty"`
	ID     string `json:"id,omitempty"`
}

// LocEqual reports whether every field set in both l and o is equal.
func (l Location) LocEqual(o Location) bool {
	return eqIfSet(l.Fname, o.Fname) && eqIfSet(l.Vault, o.Vault) &&
		eqIfSet(l.Anchor, o.Anchor) && eqIfSet(l.ID, o.ID)
}

// Matches treats l as a pattern: every field set in l must equal the
// corresponding field of o.
func (l Location) Matches(o Location) bool {
	return patternField(l.Fname, o.Fname) && patternField(l.Vault, o.Vault) &&
		patternField(l.Anchor, o.Anchor) && patternField(l.ID, o.ID)
}

// IsZero reports whether no field is set.
func (l Location) IsZero() bool {
	return l == Location{}
}

func eqIfSet(a, b string) bool {
	return a == "" || b == "" || a == b
}

func patternField(pattern, v string) bool {
	return pattern == "" || pattern == v
}

// LocationOf returns the full location of a note.
func LocationOf(n *models.Note) Location {
	return Location{Fname: n.Fname, Vault: n.Vault, ID: n.ID}
}

// RefRange bounds the content a note reference embeds.
type RefRange struct {
	AnchorStart string `json:"anchorStart,omitempty"`
	Offset      int    `json:"offset,omitempty"`
	HasOffset   bool   `json:"hasOffset,omitempty"`
	AnchorEnd   string `json:"anchorEnd,omitempty"`
}

// Link is one wikilink or note reference found in a note body.
type Link struct {
	Type   Type          `json:"type"`
	Syntax parser.Syntax `json:"-"`
	From   Location      `json:"from"`
	To     Location      `json:"to"`
	Alias  string        `json:"alias,omitempty"`
	XVault bool          `json:"xvault,omitempty"`
	Ref    *RefRange     `json:"ref,omitempty"`
	Start  int           `json:"start"`
	End    int           `json:"end"`
	Line   int           `json:"line"`
	Column int           `json:"column"`
	Raw    string        `json:"raw"`
}

// SyntaxName is the written flavor of the link: wiki, ref or legacy-ref.
func (l Link) SyntaxName() string {
	return l.Syntax.String()
}

// Filter selects links by partial locations and type.
type Filter struct {
	To   Location
	From Location
	Type *Type
}

// Match reports whether l passes the filter.
func (f Filter) Match(l Link) bool {
	if f.Type != nil && *f.Type != l.Type {
		return false
	}
	return f.To.Matches(l.To) && f.From.Matches(l.From)
}

// Find returns the links of note in source order, keeping those that pass
// filter.
func Find(note *models.Note, filter Filter) []Link {
	return FindInDocument(parser.Parse(note.Body), LocationOf(note), filter)
}

// FindInDocument returns the links of an already parsed body written in the
// note at from.
func FindInDocument(doc *parser.Document, from Location, filter Filter) []Link {
	var out []Link
	_ = doc.Visit(func(n ast.Node, s parser.Scope) (ast.WalkStatus, error) {
		if s.InCode {
			return ast.WalkSkipChildren, nil
		}
		wl, ok := n.(*parser.WikiLink)
		if !ok || s.InLink {
			return ast.WalkContinue, nil
		}
		l := fromNode(doc, wl, from)
		if filter.Match(l) {
			out = append(out, l)
		}
		return ast.WalkContinue, nil
	})
	return out
}

func fromNode(doc *parser.Document, wl *parser.WikiLink, from Location) Link {
	t := wl.Target
	l := Link{
		Type:   TypeWiki,
		Syntax: wl.Syntax,
		From:   from,
		To: Location{
			Fname: t.Fname,
			Vault: t.Vault,
		},
		Alias:  t.Alias,
		XVault: t.XVault,
		Start:  wl.Start,
		End:    wl.Stop,
		Raw:    string(doc.Source[wl.Start:wl.Stop]),
	}
	l.Line, l.Column = doc.Position(wl.Start)
	l.To.Anchor = t.Anchor
	if wl.Syntax.IsRef() {
		l.Type = TypeRef
		l.Ref = &RefRange{
			AnchorStart: t.Anchor,
			Offset:      t.Offset,
			HasOffset:   t.HasOffset,
			AnchorEnd:   t.AnchorEnd,
		}
	}
	return l
}

// IsSelf reports whether the link points into the note it is written in.
func (l Link) IsSelf() bool {
	return l.To.Fname == ""
}

// Target rebuilds the parser target of l.
func (l Link) Target() parser.Target {
	t := parser.Target{
		Alias:  l.Alias,
		Vault:  l.To.Vault,
		XVault: l.XVault,
		Fname:  l.To.Fname,
		Anchor: l.To.Anchor,
	}
	if l.Ref != nil {
		t.Anchor = l.Ref.AnchorStart
		t.Offset = l.Ref.Offset
		t.HasOffset = l.Ref.HasOffset
		t.AnchorEnd = l.Ref.AnchorEnd
	}
	return t
}
