package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// Scope describes where a node sits. Flags are inherited from ancestors and
// include the node itself.
type Scope struct {
	InCode  bool // code span, fenced or indented code block
	InLink  bool // standard markdown link, image or autolink
	InTable bool
	Depth   int // 0 for children of the document
}

// VisitFunc is called on entering every node. Returning ast.WalkSkipChildren
// prunes the subtree; ast.WalkStop ends the walk.
type VisitFunc func(n ast.Node, s Scope) (ast.WalkStatus, error)

// Visit walks the document depth-first in source order.
func (d *Document) Visit(fn VisitFunc) error {
	for c := d.Root.FirstChild(); c != nil; c = c.NextSibling() {
		st, err := visit(c, Scope{}, fn)
		if err != nil {
			return err
		}
		if st == ast.WalkStop {
			return nil
		}
	}
	return nil
}

func visit(n ast.Node, parent Scope, fn VisitFunc) (ast.WalkStatus, error) {
	s := parent
	switch n.(type) {
	case *ast.CodeSpan, *ast.FencedCodeBlock, *ast.CodeBlock:
		s.InCode = true
	case *ast.Link, *ast.Image, *ast.AutoLink:
		s.InLink = true
	case *east.Table:
		s.InTable = true
	}

	st, err := fn(n, s)
	if err != nil || st == ast.WalkStop {
		return ast.WalkStop, err
	}
	if st == ast.WalkSkipChildren {
		return ast.WalkContinue, nil
	}

	child := s
	child.Depth++
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		st, err := visit(c, child, fn)
		if err != nil || st == ast.WalkStop {
			return ast.WalkStop, err
		}
	}
	return ast.WalkContinue, nil
}

// PlainText returns the visible text below n. Block anchors are left out
// and wikilinks contribute their alias or note name.
func (d *Document) PlainText(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *BlockAnchor:
			return ast.WalkSkipChildren, nil
		case *WikiLink:
			b.WriteString(v.DisplayText())
		case *ast.Text:
			b.Write(v.Segment.Value(d.Source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
