package link

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
)

// ErrStaleLink is returned when the body no longer holds a link's raw text
// at the recorded span.
var ErrStaleLink = errors.New("link: stale link span")

// Change pairs a link found in a body with the link it should become.
type Change struct {
	Old Link
	New Link
}

// Update replaces oldLink, located by its recorded span, with newLink
// rendered in oldLink's syntax. The note is not modified.
func Update(note *models.Note, oldLink, newLink Link) (string, error) {
	return UpdateAll(note, []Change{{Old: oldLink, New: newLink}})
}

// UpdateAll applies several rewrites to one body. Spans must not overlap.
func UpdateAll(note *models.Note, changes []Change) (string, error) {
	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Old.Start > sorted[j].Old.Start })

	body := note.Body
	limit := len(body)
	for _, c := range sorted {
		o := c.Old
		if o.Start < 0 || o.End > limit || o.Start > o.End || body[o.Start:o.End] != o.Raw {
			return "", fmt.Errorf("%w: %q at %d", ErrStaleLink, o.Raw, o.Start)
		}
		body = body[:o.Start] + Reformat(o, c.New) + body[o.End:]
		limit = o.Start
	}
	return body, nil
}

// Reformat renders newLink's target with the syntax flavor, alias presence
// and vault style of oldLink.
func Reformat(oldLink, newLink Link) string {
	t := newLink.Target()

	t.Alias = ""
	if oldLink.Alias != "" {
		t.Alias = oldLink.Alias
		if newLink.Alias != "" {
			t.Alias = newLink.Alias
		}
	}

	switch {
	case t.Vault == "":
		t.XVault = false
	case oldLink.To.Vault != "":
		t.XVault = oldLink.XVault
	default:
		t.XVault = true
	}

	if newLink.Ref == nil && oldLink.Ref != nil {
		t.Offset = oldLink.Ref.Offset
		t.HasOffset = oldLink.Ref.HasOffset
		t.AnchorEnd = oldLink.Ref.AnchorEnd
	}
	return keepPadding(Render(oldLink.Syntax, t), oldLink.Raw)
}

// innerBrackets returns the offsets of the text between the first [[ of raw
// and the ]] closing it.
func innerBrackets(raw string) (start, end int, ok bool) {
	open := strings.Index(raw, "[[")
	if open < 0 {
		return 0, 0, false
	}
	n := strings.Index(raw[open+2:], "]]")
	if n < 0 {
		return 0, 0, false
	}
	return open + 2, open + 2 + n, true
}

// keepPadding copies the blanks written just inside the brackets of raw,
// as in [[ foo ]], onto rendered.
func keepPadding(rendered, raw string) string {
	s, e, ok := innerBrackets(raw)
	if !ok {
		return rendered
	}
	inner := raw[s:e]
	rest := strings.TrimLeft(inner, " \t")
	lead := inner[:len(inner)-len(rest)]
	trail := rest[len(strings.TrimRight(rest, " \t")):]
	if lead == "" && trail == "" {
		return rendered
	}

	rs, re, ok := innerBrackets(rendered)
	if !ok {
		return rendered
	}
	return rendered[:rs] + lead + rendered[rs:re] + trail + rendered[re:]
}

// Format renders l in its own syntax.
func Format(l Link) string {
	return Render(l.Syntax, l.Target())
}

// Render writes a target in the given syntax.
func Render(syntax parser.Syntax, t parser.Target) string {
	switch syntax {
	case parser.SyntaxRef:
		t.Alias = ""
		return "![[" + t.String() + "]]"
	case parser.SyntaxLegacyRef:
		var b strings.Builder
		b.WriteString("((ref: [[")
		if t.Vault != "" {
			if t.XVault {
				b.WriteString(parser.XVaultPrefix)
			}
			b.WriteString(t.Vault + "/")
		}
		b.WriteString(t.Fname)
		b.WriteString("]]")
		if t.Anchor != "" {
			b.WriteString("#" + t.Anchor)
			if t.HasOffset {
				b.WriteString("," + strconv.Itoa(t.Offset))
			}
			if t.AnchorEnd != "" {
				b.WriteString(":#" + t.AnchorEnd)
			}
		}
		b.WriteString("))")
		return b.String()
	default:
		inner := t.String()
		if t.Alias != "" {
			inner = t.Alias + "|" + inner
		}
		return "[[" + inner + "]]"
	}
}
