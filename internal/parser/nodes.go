package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// XVaultPrefix marks a cross-vault link target.
const XVaultPrefix = "dendron://"

// Wildcard selects a whole note in a note reference.
const Wildcard = "*"

// Syntax is the textual flavor a link was written in.
type Syntax int

const (
	// SyntaxWiki is [[alias|vault/fname#anchor]].
	SyntaxWiki Syntax = iota
	// SyntaxRef is ![[vault/fname#start,offset:#end]].
	SyntaxRef
	// SyntaxLegacyRef is ((ref: [[fname]]#start,offset:#end)).
	SyntaxLegacyRef
)

func (s Syntax) String() string {
	switch s {
	case SyntaxWiki:
		return "wiki"
	case SyntaxRef:
		return "ref"
	case SyntaxLegacyRef:
		return "legacy-ref"
	}
	return "Syntax(" + strconv.Itoa(int(s)) + ")"
}

// IsRef reports whether the syntax embeds content.
func (s Syntax) IsRef() bool {
	return s == SyntaxRef || s == SyntaxLegacyRef
}

// Target is the decoded inside of a link.
type Target struct {
	Alias     string
	Vault     string
	XVault    bool // written with the dendron:// prefix
	Fname     string
	Anchor    string // anchor, or the range start of a ref
	Offset    int
	HasOffset bool
	AnchorEnd string
}

// ParseTarget decodes the text between [[ and ]]. Anchor ranges are only
// recognised when ranged is set.
func ParseTarget(inner string, ranged bool) Target {
	var t Target
	value := inner
	if i := strings.Index(value, "|"); i >= 0 {
		t.Alias = strings.TrimSpace(value[:i])
		value = value[i+1:]
	}
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, XVaultPrefix) {
		t.XVault = true
		value = value[len(XVaultPrefix):]
		if i := strings.Index(value, "/"); i >= 0 {
			t.Vault = value[:i]
			value = value[i+1:]
		}
	}

	if i := strings.Index(value, "#"); i >= 0 {
		anchor := value[i+1:]
		value = value[:i]
		if ranged {
			t.Anchor, t.Offset, t.HasOffset, t.AnchorEnd = parseRange(anchor)
		} else {
			t.Anchor = strings.TrimSpace(anchor)
		}
	}

	if !t.XVault {
		if i := strings.Index(value, "/"); i > 0 {
			t.Vault = strings.TrimSpace(value[:i])
			value = value[i+1:]
		}
	}
	t.Fname = strings.TrimSpace(value)
	return t
}

// parseRange splits start[,offset][:#end].
func parseRange(s string) (start string, offset int, hasOffset bool, end string) {
	if i := strings.Index(s, ":#"); i >= 0 {
		end = strings.TrimSpace(s[i+2:])
		s = s[:i]
	}
	if i := strings.LastIndex(s, ","); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(s[i+1:])); err == nil && n >= 0 {
			offset, hasOffset = n, true
			s = s[:i]
		}
	}
	return strings.TrimSpace(s), offset, hasOffset, end
}

// String re-encodes the target in wikilink inner form, without alias.
func (t Target) String() string {
	var b strings.Builder
	if t.Vault != "" {
		if t.XVault {
			b.WriteString(XVaultPrefix)
		}
		b.WriteString(t.Vault)
		b.WriteByte('/')
	}
	b.WriteString(t.Fname)
	if t.Anchor != "" || t.HasOffset || t.AnchorEnd != "" {
		b.WriteByte('#')
		b.WriteString(t.Anchor)
	}
	if t.HasOffset {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(t.Offset))
	}
	if t.AnchorEnd != "" {
		b.WriteString(":#")
		b.WriteString(t.AnchorEnd)
	}
	return b.String()
}

var (
	_ ast.Node = (*WikiLink)(nil)
	_ ast.Node = (*BlockAnchor)(nil)
)

// KindWikiLink is the node kind of WikiLink.
var KindWikiLink = ast.NewNodeKind("WikiLink")

// WikiLink is an inline wikilink or note reference. Start and Stop are byte
// offsets of the whole construct in the parsed source.
type WikiLink struct {
	ast.BaseInline
	Syntax Syntax
	Target Target
	Start  int
	Stop   int
}

// Kind implements ast.Node.
func (n *WikiLink) Kind() ast.NodeKind {
	return KindWikiLink
}

// Dump implements ast.Node.
func (n *WikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Syntax": n.Syntax.String(),
		"Target": n.Target.String(),
		"Alias":  n.Target.Alias,
		"Span":   fmt.Sprintf("%d:%d", n.Start, n.Stop),
	}, nil)
}

// DisplayText is what a reader sees in place of the link.
func (n *WikiLink) DisplayText() string {
	if n.Target.Alias != "" {
		return n.Target.Alias
	}
	return n.Target.Fname
}

// KindBlockAnchor is the node kind of BlockAnchor.
var KindBlockAnchor = ast.NewNodeKind("BlockAnchor")

// BlockAnchor is a trailing ^label token.
type BlockAnchor struct {
	ast.BaseInline
	Value string
	Start int
	Stop  int
}

// Kind implements ast.Node.
func (n *BlockAnchor) Kind() ast.NodeKind {
	return KindBlockAnchor
}

// Dump implements ast.Node.
func (n *BlockAnchor) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Value": n.Value,
	}, nil)
}
