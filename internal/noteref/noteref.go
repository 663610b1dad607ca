// Package noteref expands note references (![[...]]) into the content they
// point at.
package noteref

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/resolve"
)

// DefaultMaxDepth bounds how many notes deep references are followed.
const DefaultMaxDepth = 3

// Status is the outcome of expanding one reference.
type Status int

const (
	StatusExpanded Status = iota
	StatusNotFound
	StatusAmbiguous
	StatusCircular
	StatusTooDeep
	StatusAnchorNotFound
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusExpanded:
		return "expanded"
	case StatusNotFound:
		return "not-found"
	case StatusAmbiguous:
		return "ambiguous"
	case StatusCircular:
		return "circular"
	case StatusTooDeep:
		return "too-deep"
	case StatusAnchorNotFound:
		return "anchor-not-found"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Embed reports what happened to one reference. Link spans refer to the
// body the reference was found in, after legacy normalisation.
type Embed struct {
	Link     link.Link      `json:"link"`
	Status   Status         `json:"status"`
	Target   *link.Location `json:"target,omitempty"`
	Message  string         `json:"message,omitempty"`
	Children []Embed        `json:"children,omitempty"`
}

// MarkerFunc renders the text that replaces a reference that could not be
// expanded.
type MarkerFunc func(e Embed) string

// DefaultMarker renders "ERROR: <message>".
func DefaultMarker(e Embed) string {
	return "ERROR: " + e.Message
}

// Options configure an Expander.
type Options struct {
	// MaxDepth defaults to DefaultMaxDepth when zero or negative.
	MaxDepth int
	Policy   resolve.Policy
	Marker   MarkerFunc
	Logger   *slog.Logger
}

// Expansion is a note body with every reference replaced.
type Expansion struct {
	Body   string  `json:"body"`
	Embeds []Embed `json:"embeds"`
}

// Document parses the expanded body.
func (e *Expansion) Document() *parser.Document {
	return parser.Parse(e.Body)
}

// Expander replaces references with content. It is safe for concurrent use
// as long as its corpus is.
type Expander struct {
	resolver *resolve.Resolver
	opts     Options
}

// New creates an Expander resolving through r.
func New(r *resolve.Resolver, opts Options) *Expander {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Policy == "" {
		opts.Policy = resolve.PolicyStrict
	}
	if opts.Marker == nil {
		opts.Marker = DefaultMarker
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Expander{resolver: r, opts: opts}
}

// Expand normalises legacy references in note and replaces every reference
// with its target content. Failures are reported per reference through
// markers and never abort the note.
func (x *Expander) Expand(note *models.Note) *Expansion {
	body, embeds := x.expand(note, NormalizeLegacy(note.Body), []string{note.Key()}, 0)
	return &Expansion{Body: body, Embeds: embeds}
}

// expand handles one level. path holds the vault/fname keys of the notes
// currently being expanded, outermost first.
func (x *Expander) expand(note *models.Note, body string, path []string, depth int) (string, []Embed) {
	refType := link.TypeRef
	refs := link.FindInDocument(parser.Parse(body), link.LocationOf(note), link.Filter{Type: &refType})
	if len(refs) == 0 {
		return body, nil
	}

	var b strings.Builder
	embeds := make([]Embed, 0, len(refs))
	last := 0
	for _, ref := range refs {
		content, e := x.embed(ref, path, depth)
		embeds = append(embeds, e)
		b.WriteString(body[last:ref.Start])
		b.WriteString(content)
		last = ref.End
	}
	b.WriteString(body[last:])
	return b.String(), embeds
}

func (x *Expander) embed(ref link.Link, path []string, depth int) (string, Embed) {
	e := Embed{Link: ref}
	fail := func(s Status, msg string) (string, Embed) {
		e.Status, e.Message = s, msg
		x.opts.Logger.Debug("noteref: reference not expanded",
			slog.String("ref", ref.Raw),
			slog.String("status", s.String()),
			slog.String("from", models.NoteKey(ref.From.Vault, ref.From.Fname)))
		return x.opts.Marker(e), e
	}

	res, err := x.resolver.ResolveLink(ref)
	if err != nil {
		x.opts.Logger.Warn("noteref: resolve failed", slog.String("ref", ref.Raw), slog.String("error", err.Error()))
		return fail(StatusError, err.Error())
	}
	target, err := res.Pick(x.opts.Policy, ref.From)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fail(StatusNotFound, "note not found: "+describe(res.To))
	case errors.Is(err, apperr.ErrAmbiguous):
		vaults := make([]string, len(res.Candidates))
		for i, n := range res.Candidates {
			vaults[i] = n.Vault
		}
		return fail(StatusAmbiguous, fmt.Sprintf("ambiguous reference %s: found in %s", describe(res.To), strings.Join(vaults, ", ")))
	case err != nil:
		return fail(StatusError, err.Error())
	}

	loc := link.LocationOf(target)
	e.Target = &loc
	key := target.Key()
	for _, p := range path {
		if p == key {
			return fail(StatusCircular, "circular reference to "+xvault(target))
		}
	}
	if depth+1 > x.opts.MaxDepth {
		return fail(StatusTooDeep, fmt.Sprintf("max reference depth %d exceeded at %s", x.opts.MaxDepth, xvault(target)))
	}

	content, err := Select(target.Body, ref.Ref)
	if err != nil {
		return fail(StatusAnchorNotFound, fmt.Sprintf("%v in %s", err, xvault(target)))
	}

	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	out, children := x.expand(target, content, append(next, key), depth+1)
	e.Status = StatusExpanded
	e.Children = children
	return out, e
}

func describe(l link.Location) string {
	if l.Vault != "" {
		return parser.XVaultPrefix + l.Vault + "/" + l.Fname
	}
	return l.Fname
}

func xvault(n *models.Note) string {
	return parser.XVaultPrefix + n.Vault + "/" + n.Fname
}
