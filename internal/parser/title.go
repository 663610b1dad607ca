package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// H1ToTitle removes the first top-level H1 heading from body and returns its
// text. ok is false when body has no such heading.
func H1ToTitle(body string) (title, rest string, ok bool) {
	doc := Parse(body)
	for c := doc.Root.FirstChild(); c != nil; c = c.NextSibling() {
		h, isHeading := c.(*ast.Heading)
		if !isHeading || h.Level != 1 {
			continue
		}
		start, end, found := doc.Span(h)
		if !found {
			continue
		}
		title = doc.PlainText(h)
		rest = body[:start] + strings.TrimLeft(body[end:], "\r\n")
		return title, rest, true
	}
	return "", body, false
}
