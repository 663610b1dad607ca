// Package anchor finds the addressable positions of a note: heading slugs
// and explicit ^block labels.
package anchor

import (
	"fmt"
	"regexp"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/slug"
)

// Kind tells header anchors from block anchors.
type Kind int

const (
	KindHeader Kind = iota
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindBlock:
		return "block"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Anchor is one addressable position of a note.
type Anchor struct {
	Kind      Kind   `json:"type"`
	Value     string `json:"value"`
	Text      string `json:"text,omitempty"`
	Depth     int    `json:"depth,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Generated bool   `json:"generated,omitempty"`
	// Node is the heading, or the block the label belongs to.
	Node ast.Node `json:"-"`
}

// Ref is the anchor as written after # in a link.
func (a Anchor) Ref() string {
	if a.Kind == KindBlock {
		return "^" + a.Value
	}
	return a.Value
}

// tableAnchorRe matches a label written after the closing pipe of a row.
var tableAnchorRe = regexp.MustCompile(`\s\^([A-Za-z0-9-]+)\s*$`)

// Find parses body and returns its anchors in document order.
func Find(body string) []Anchor {
	return FromDocument(parser.Parse(body))
}

// FromDocument returns the anchors of an already parsed note.
func FromDocument(doc *parser.Document) []Anchor {
	g := slug.New()
	var out []Anchor

	add := func(a Anchor) {
		a.Line, a.Column = doc.Position(a.Start)
		out = append(out, a)
	}

	_ = doc.Visit(func(n ast.Node, s parser.Scope) (ast.WalkStatus, error) {
		if s.InCode || s.InLink {
			return ast.WalkSkipChildren, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			text := doc.PlainText(v)
			value := g.Slug(text)
			if value == "" {
				return ast.WalkContinue, nil
			}
			start, end, _ := doc.Span(v)
			add(Anchor{Kind: KindHeader, Value: value, Text: text, Depth: v.Level, Start: start, End: end, Node: v})
		case *east.Table:
			start, end, ok := doc.Span(v)
			if !ok {
				return ast.WalkSkipChildren, nil
			}
			last := start
			for i := end - 1; i > start; i-- {
				if doc.Source[i-1] == '\n' {
					last = i
					break
				}
			}
			if m := tableAnchorRe.FindSubmatchIndex(doc.Source[last:end]); m != nil {
				add(Anchor{Kind: KindBlock, Value: string(doc.Source[last+m[2] : last+m[3]]), Start: last + m[2] - 1, End: last + m[3], Node: v})
			}
			// labels inside cells are cell text
			return ast.WalkSkipChildren, nil
		case *parser.BlockAnchor:
			add(Anchor{Kind: KindBlock, Value: v.Value, Start: v.Start, End: v.Stop, Node: Owner(v)})
		}
		return ast.WalkContinue, nil
	})
	return out
}

// Owner returns the block a ^label belongs to: the heading, list item or
// table holding it, otherwise its top-level ancestor.
func Owner(n ast.Node) ast.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.Heading, *ast.ListItem, *east.Table:
			return p
		}
		if gp := p.Parent(); gp != nil && gp.Kind() == ast.KindDocument {
			return p
		}
	}
	return n.Parent()
}

// Lookup returns the first anchor matching ref. A ref starting with ^ only
// matches block anchors. Otherwise headers are tried first, by slug, then
// block anchors.
func Lookup(anchors []Anchor, ref string) (Anchor, bool) {
	if len(ref) > 0 && ref[0] == '^' {
		return lookup(anchors, KindBlock, ref[1:])
	}
	if a, ok := lookup(anchors, KindHeader, slug.Slugify(ref)); ok {
		return a, true
	}
	if a, ok := lookup(anchors, KindHeader, ref); ok {
		return a, true
	}
	return lookup(anchors, KindBlock, ref)
}

func lookup(anchors []Anchor, kind Kind, value string) (Anchor, bool) {
	for _, a := range anchors {
		if a.Kind == kind && a.Value == value {
			return a, true
		}
	}
	return Anchor{}, false
}
