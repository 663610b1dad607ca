package parser

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, Extension),
)

// Document is a parsed note body. All offsets handed out by the packages
// working on a Document are byte offsets into Source.
type Document struct {
	Source []byte
	Root   ast.Node
}

// Parse builds the syntax tree of a note body.
func Parse(body string) *Document {
	src := []byte(body)
	return &Document{
		Source: src,
		Root:   markdown.Parser().Parse(text.NewReader(src)),
	}
}

// Position returns the 1-based line and column of offset.
func (d *Document) Position(offset int) (line, col int) {
	if offset > len(d.Source) {
		offset = len(d.Source)
	}
	line = 1 + bytes.Count(d.Source[:offset], []byte{'\n'})
	col = offset - lineStart(d.Source, offset) + 1
	return line, col
}

// Span returns the byte range [start, end) of n widened to whole source
// lines. end stops before the newline that terminates the last line.
// Inline note nodes report their exact range. ok is false for nodes that
// occupy no source text.
func (d *Document) Span(n ast.Node) (start, end int, ok bool) {
	switch v := n.(type) {
	case *ast.FencedCodeBlock:
		return d.fenceSpan(v)
	case *WikiLink:
		return v.Start, v.Stop, true
	case *BlockAnchor:
		return v.Start, v.Stop, true
	}

	start, end = -1, -1
	d.collect(n, &start, &end)
	if start < 0 {
		return 0, 0, false
	}
	start = lineStart(d.Source, start)
	end = lineEnd(d.Source, end)

	if _, isHeading := n.(*ast.Heading); isHeading && !d.isATX(start) {
		// setext underline
		if end < len(d.Source) {
			end = lineEndAt(d.Source, end+1)
		}
	}
	return start, end, true
}

// collect widens [start, stop) over every segment below n.
func (d *Document) collect(n ast.Node, start, stop *int) {
	grow := func(s, e int) {
		if s >= e {
			return
		}
		if *start < 0 || s < *start {
			*start = s
		}
		if e > *stop {
			*stop = e
		}
	}
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			grow(v.Segment.Start, v.Segment.Stop)
		case *WikiLink:
			grow(v.Start, v.Stop)
		case *BlockAnchor:
			grow(v.Start, v.Stop)
		case *ast.FencedCodeBlock:
			if s, e, ok := d.fenceSpan(v); ok {
				grow(s, e)
			}
			return ast.WalkSkipChildren, nil
		}
		if c.Type() == ast.TypeBlock {
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				grow(seg.Start, seg.Stop)
			}
		}
		return ast.WalkContinue, nil
	})
}

func (d *Document) isATX(at int) bool {
	rest := bytes.TrimLeft(d.Source[at:], " \t>")
	return len(rest) > 0 && rest[0] == '#'
}

// fenceSpan includes both fence lines, which goldmark leaves out of Lines.
func (d *Document) fenceSpan(fc *ast.FencedCodeBlock) (int, int, bool) {
	src := d.Source
	open := -1
	switch {
	case fc.Info != nil:
		open = lineStart(src, fc.Info.Segment.Start)
	case fc.Lines().Len() > 0:
		first := lineStart(src, fc.Lines().At(0).Start)
		if first > 0 {
			open = lineStart(src, first-1)
		}
	default:
		from := 0
		if prev := fc.PreviousSibling(); prev != nil {
			if _, e, ok := d.Span(prev); ok {
				from = e
			}
		}
		open = nextFenceLine(src, from)
	}
	if open < 0 {
		return 0, 0, false
	}
	fence := fenceChar(src, open)

	last := lineEndAt(src, open)
	if n := fc.Lines().Len(); n > 0 {
		last = lineEnd(src, fc.Lines().At(n-1).Stop)
	}
	if last < len(src) {
		next := last + 1
		if fence != 0 && fenceChar(src, next) == fence {
			last = lineEndAt(src, next)
		}
	}
	return open, last, true
}

func fenceChar(src []byte, at int) byte {
	rest := bytes.TrimLeft(src[at:], " ")
	if len(rest) >= 3 && (rest[0] == '`' || rest[0] == '~') && rest[1] == rest[0] && rest[2] == rest[0] {
		return rest[0]
	}
	return 0
}

func nextFenceLine(src []byte, from int) int {
	for at := from; at < len(src); {
		at = lineStart(src, at)
		if fenceChar(src, at) != 0 {
			return at
		}
		i := bytes.IndexByte(src[at:], '\n')
		if i < 0 {
			return -1
		}
		at += i + 1
	}
	return -1
}

// lineStart returns the offset of the first byte of the line holding at.
func lineStart(src []byte, at int) int {
	if at > len(src) {
		at = len(src)
	}
	for at > 0 && src[at-1] != '\n' {
		at--
	}
	return at
}

// lineEnd returns the end of the line holding the byte before stop.
func lineEnd(src []byte, stop int) int {
	if stop > len(src) {
		stop = len(src)
	}
	if stop > 0 {
		stop--
	}
	return lineEndAt(src, stop)
}

// lineEndAt returns the offset of the newline ending the line holding at,
// or len(src).
func lineEndAt(src []byte, at int) int {
	for at < len(src) && src[at] != '\n' {
		at++
	}
	return at
}
