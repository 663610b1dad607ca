package parser

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// inlinePriority runs the note parsers ahead of goldmark's link parser (200).
const inlinePriority = 199

var (
	legacyRefRe   = regexp.MustCompile(`^\(\(ref:\s*\[\[([^\]]+)\]\]([^)]*)\)\)`)
	blockAnchorRe = regexp.MustCompile(`^\^([A-Za-z0-9-]+)\s*$`)
)

// Extension adds wikilinks, note references, legacy references and block
// anchors to a goldmark parser.
var Extension goldmark.Extender = &noteExtension{}

type noteExtension struct{}

func (e *noteExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&wikiLinkParser{}, inlinePriority),
		util.Prioritized(&legacyRefParser{}, inlinePriority),
		util.Prioritized(&blockAnchorParser{}, inlinePriority),
	))
}

type wikiLinkParser struct{}

func (p *wikiLinkParser) Trigger() []byte {
	return []byte{'[', '!'}
}

func (p *wikiLinkParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, seg := block.PeekLine()

	syntax, open := SyntaxWiki, 2
	switch {
	case bytes.HasPrefix(line, []byte("![[")):
		syntax, open = SyntaxRef, 3
	case bytes.HasPrefix(line, []byte("[[")):
	default:
		return nil
	}

	end := bytes.Index(line[open:], []byte("]]"))
	if end < 0 {
		return nil
	}
	inner := line[open : open+end]
	if len(bytes.TrimSpace(inner)) == 0 || bytes.Contains(inner, []byte("[[")) {
		return nil
	}
	target := ParseTarget(string(inner), syntax == SyntaxRef)
	if target.Fname == "" && target.Anchor == "" {
		return nil
	}

	width := open + end + 2
	block.Advance(width)
	return &WikiLink{
		Syntax: syntax,
		Target: target,
		Start:  seg.Start,
		Stop:   seg.Start + width,
	}
}

type legacyRefParser struct{}

func (p *legacyRefParser) Trigger() []byte {
	return []byte{'('}
}

func (p *legacyRefParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, seg := block.PeekLine()
	m := legacyRefRe.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}
	target := ParseTarget(string(line[m[2]:m[3]]), false)
	if target.Fname == "" {
		return nil
	}
	target.Anchor = ""
	if rest := bytes.TrimSpace(line[m[4]:m[5]]); len(rest) > 1 && rest[0] == '#' {
		target.Anchor, target.Offset, target.HasOffset, target.AnchorEnd = parseRange(string(rest[1:]))
	}

	block.Advance(m[1])
	return &WikiLink{
		Syntax: SyntaxLegacyRef,
		Target: target,
		Start:  seg.Start,
		Stop:   seg.Start + m[1],
	}
}

type blockAnchorParser struct{}

func (p *blockAnchorParser) Trigger() []byte {
	return []byte{'^'}
}

// Parse accepts ^label only as the last token of a line.
func (p *blockAnchorParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	switch block.PrecendingCharacter() {
	case ' ', '\t', '\n':
	default:
		return nil
	}
	line, seg := block.PeekLine()
	m := blockAnchorRe.FindSubmatch(line)
	if m == nil {
		return nil
	}
	width := 1 + len(m[1])
	block.Advance(width)
	return &BlockAnchor{
		Value: string(m[1]),
		Start: seg.Start,
		Stop:  seg.Start + width,
	}
}
