// Package block splits a note into addressable blocks and gives each one an
// anchor, explicit or generated.
package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/starford/noteweave/internal/anchor"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/slug"
)

// Kind is the closed set of block kinds.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindListItem
	KindList
	KindTable
	KindCode
	KindQuote
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindListItem:
		return "listItem"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindCode:
		return "code"
	case KindQuote:
		return "blockquote"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// generatedName is the stem of a generated anchor.
func (k Kind) generatedName() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindListItem:
		return "item"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindCode:
		return "code"
	case KindQuote:
		return "quote"
	}
	return "block"
}

// Block is an addressable unit of a note. Start and End are byte offsets of
// whole source lines; End excludes the final newline.
type Block struct {
	Kind   Kind            `json:"type"`
	Anchor anchor.Anchor   `json:"anchor"`
	Labels []anchor.Anchor `json:"labels,omitempty"`
	Start  int             `json:"start"`
	End    int             `json:"end"`
	Line   int             `json:"line"`
	Node   ast.Node        `json:"-"`
}

// Matches reports whether ref (as written after # in a link) names b.
func (b Block) Matches(ref string) bool {
	if strings.HasPrefix(ref, "^") {
		value := ref[1:]
		if b.Anchor.Kind == anchor.KindBlock && b.Anchor.Value == value {
			return true
		}
		for _, l := range b.Labels {
			if l.Value == value {
				return true
			}
		}
		return false
	}
	if b.Anchor.Kind == anchor.KindHeader {
		return b.Anchor.Value == slug.Slugify(ref) || b.Anchor.Value == ref
	}
	return false
}

// FromNote parses body and extracts its blocks.
func FromNote(body string) []Block {
	doc := parser.Parse(body)
	return Extract(doc, anchor.FromDocument(doc))
}

// Extract returns the blocks of doc in document order. List items come
// before the list that holds them. anchors must come from the same document.
func Extract(doc *parser.Document, anchors []anchor.Anchor) []Block {
	headers := make(map[ast.Node]anchor.Anchor)
	labels := make(map[ast.Node][]anchor.Anchor)
	used := slug.New()
	for _, a := range anchors {
		used.Reserve(a.Value)
		switch a.Kind {
		case anchor.KindHeader:
			headers[a.Node] = a
		case anchor.KindBlock:
			labels[a.Node] = append(labels[a.Node], a)
		}
	}

	var blocks []Block
	add := func(kind Kind, n ast.Node) {
		start, end, ok := doc.Span(n)
		if !ok || start >= end {
			return
		}
		line, _ := doc.Position(start)
		blocks = append(blocks, Block{Kind: kind, Start: start, End: end, Line: line, Node: n})
	}

	for c := doc.Root.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Heading:
			add(KindHeading, v)
		case *ast.Paragraph:
			if labelOnly(v, doc.Source) {
				if len(blocks) > 0 {
					prev := blocks[len(blocks)-1].Node
					labels[prev] = append(labels[prev], labels[v]...)
				}
				continue
			}
			add(KindParagraph, v)
		case *ast.List:
			_ = ast.Walk(v, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if entering && n.Kind() == ast.KindListItem {
					add(KindListItem, n)
				}
				return ast.WalkContinue, nil
			})
			add(KindList, v)
		case *east.Table:
			add(KindTable, v)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			add(KindCode, v)
		case *ast.Blockquote:
			add(KindQuote, v)
		}
	}

	item := 0
	for i := range blocks {
		b := &blocks[i]
		own := labels[b.Node]
		if h, ok := headers[b.Node]; ok {
			b.Anchor = h
			b.Labels = own
			continue
		}
		if len(own) > 0 {
			b.Anchor = own[0]
			b.Labels = own[1:]
			continue
		}
		b.Anchor = anchor.Anchor{
			Kind:      anchor.KindBlock,
			Value:     generate(used, b.Kind, &item),
			Start:     b.Start,
			End:       b.Start,
			Line:      b.Line,
			Generated: true,
			Node:      b.Node,
		}
	}
	return blocks
}

// Locate returns the index of the first block named by ref, or -1.
func Locate(blocks []Block, ref string) int {
	for i, b := range blocks {
		if b.Matches(ref) {
			return i
		}
	}
	if strings.HasPrefix(ref, "^") {
		return -1
	}
	return Locate(blocks, "^"+ref)
}

// generate picks the next free anchor for a block without a label. List
// items are numbered item1, item2, ...; other kinds use their name with a
// numeric suffix on collision.
func generate(used *slug.Slugger, kind Kind, item *int) string {
	if kind != KindListItem {
		return used.Unique(kind.generatedName())
	}
	for {
		*item++
		name := kind.generatedName() + strconv.Itoa(*item)
		if !used.Taken(name) {
			used.Reserve(name)
			return name
		}
	}
}

// labelOnly reports whether p holds nothing but a ^label.
func labelOnly(p *ast.Paragraph, src []byte) bool {
	found := false
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *parser.BlockAnchor:
			found = true
		case *ast.Text:
			if len(strings.TrimSpace(string(v.Segment.Value(src)))) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return found
}
