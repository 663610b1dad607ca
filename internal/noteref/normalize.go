package noteref

import (
	"strings"

	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/slug"
)

// NormalizeLegacy rewrites every ((ref: [[fname]]#a,N:#b)) outside code into
// ![[fname#a,N:#b]]. Anchor names are slugified; * and ^labels are kept.
// Bodies without legacy references are returned unchanged.
func NormalizeLegacy(body string) string {
	out, _ := NormalizeLegacyCount(body)
	return out
}

// NormalizeLegacyCount is NormalizeLegacy that also reports how many
// references were rewritten.
func NormalizeLegacyCount(body string) (string, int) {
	if !strings.Contains(body, "((ref:") {
		return body, 0
	}
	n := &models.Note{Body: body}
	var changes []link.Change
	for _, l := range link.Find(n, link.Filter{}) {
		if l.Syntax != parser.SyntaxLegacyRef {
			continue
		}
		modern := l
		modern.Syntax = parser.SyntaxRef
		modern.Alias = ""
		modern.To.Anchor = normalizeAnchor(l.To.Anchor)
		if l.Ref != nil {
			r := *l.Ref
			r.AnchorStart = normalizeAnchor(r.AnchorStart)
			r.AnchorEnd = normalizeAnchor(r.AnchorEnd)
			modern.Ref = &r
		}
		changes = append(changes, link.Change{Old: l, New: modern})
	}
	if len(changes) == 0 {
		return body, 0
	}
	out, err := rewrite(n, changes)
	if err != nil {
		return body, 0
	}
	return out, len(changes)
}

// rewrite renders each change in the new link's own syntax.
func rewrite(n *models.Note, changes []link.Change) (string, error) {
	body := n.Body
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if body[c.Old.Start:c.Old.End] != c.Old.Raw {
			return "", link.ErrStaleLink
		}
		body = body[:c.Old.Start] + link.Format(c.New) + body[c.Old.End:]
	}
	return body, nil
}

func normalizeAnchor(a string) string {
	if a == "" || a == parser.Wildcard || strings.HasPrefix(a, "^") {
		return a
	}
	return slug.Slugify(a)
}
