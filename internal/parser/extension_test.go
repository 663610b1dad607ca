package parser

import (
	"testing"

	"github.com/yuin/goldmark/ast"
)

func wikiLinks(t *testing.T, body string) []*WikiLink {
	t.Helper()
	doc := Parse(body)
	var out []*WikiLink
	err := doc.Visit(func(n ast.Node, s Scope) (ast.WalkStatus, error) {
		if wl, ok := n.(*WikiLink); ok {
			out = append(out, wl)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	return out
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name   string
		inner  string
		ranged bool
		want   Target
	}{
		{"plain", "foo", false, Target{Fname: "foo"}},
		{"alias", "Foo Note|foo.bar", false, Target{Alias: "Foo Note", Fname: "foo.bar"}},
		{"anchor", "foo#intro", false, Target{Fname: "foo", Anchor: "intro"}},
		{"block anchor", "foo#^p1", false, Target{Fname: "foo", Anchor: "^p1"}},
		{"xvault", "dendron://vault2/bar", false, Target{Vault: "vault2", XVault: true, Fname: "bar"}},
		{"bare vault", "vault2/bar#h", false, Target{Vault: "vault2", Fname: "bar", Anchor: "h"}},
		{"self anchor", "#intro", false, Target{Anchor: "intro"}},
		{"range", "foo#a,2:#b", true, Target{Fname: "foo", Anchor: "a", Offset: 2, HasOffset: true, AnchorEnd: "b"}},
		{"wildcard", "foo#*", true, Target{Fname: "foo", Anchor: "*"}},
		{"unranged keeps text", "foo#a,2", false, Target{Fname: "foo", Anchor: "a,2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTarget(tt.inner, tt.ranged); got != tt.want {
				t.Errorf("ParseTarget(%q) = %+v, want %+v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestTargetString(t *testing.T) {
	tgt := Target{Vault: "v", XVault: true, Fname: "foo", Anchor: "a", Offset: 1, HasOffset: true, AnchorEnd: "b"}
	if got := tgt.String(); got != "dendron://v/foo#a,1:#b" {
		t.Errorf("String = %q", got)
	}
}

func TestWikiLinkNodes(t *testing.T) {
	body := "See [[foo]] and ![[bar#h1]] then ((ref: [[baz]]#start,1:#end)).\n"
	links := wikiLinks(t, body)
	if len(links) != 3 {
		t.Fatalf("len(links) = %d, want 3", len(links))
	}
	wantSyntax := []Syntax{SyntaxWiki, SyntaxRef, SyntaxLegacyRef}
	wantRaw := []string{"[[foo]]", "![[bar#h1]]", "((ref: [[baz]]#start,1:#end))"}
	for i, wl := range links {
		if wl.Syntax != wantSyntax[i] {
			t.Errorf("links[%d].Syntax = %v, want %v", i, wl.Syntax, wantSyntax[i])
		}
		if raw := body[wl.Start:wl.Stop]; raw != wantRaw[i] {
			t.Errorf("links[%d] raw = %q, want %q", i, raw, wantRaw[i])
		}
	}
	if got := links[2].Target; got.Fname != "baz" || got.Anchor != "start" || got.Offset != 1 || got.AnchorEnd != "end" {
		t.Errorf("legacy target = %+v", got)
	}
}

func TestWikiLinkDisplayText(t *testing.T) {
	links := wikiLinks(t, "[[Road map|project.roadmap]] and [[dendron://work/todo#next]]\n")
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	if got := links[0].DisplayText(); got != "Road map" {
		t.Errorf("alias text = %q, want %q", got, "Road map")
	}
	if got := links[1].DisplayText(); got != "todo" {
		t.Errorf("fname text = %q, want %q", got, "todo")
	}

	var node ast.Node = links[0]
	if node.Kind() != KindWikiLink {
		t.Errorf("kind = %v, want %v", node.Kind(), KindWikiLink)
	}
}

func TestPlainTextUsesDisplayText(t *testing.T) {
	doc := Parse("# See [[Road map|project.roadmap]] ^h1\n")
	heading := doc.Root.FirstChild()
	if got := doc.PlainText(heading); got != "See Road map" {
		t.Errorf("PlainText = %q, want %q", got, "See Road map")
	}
}

func TestWikiLinkIgnoredInCode(t *testing.T) {
	body := "`[[inline]]`\n\n```\n[[fenced]]\n```\n\n    [[indented]]\n"
	if links := wikiLinks(t, body); len(links) != 0 {
		t.Errorf("expected no links in code, got %d", len(links))
	}
}

func TestEmptyWikiLinkIsText(t *testing.T) {
	if links := wikiLinks(t, "nothing [[]] here [[ ]]"); len(links) != 0 {
		t.Errorf("expected no links, got %d", len(links))
	}
}

func TestBlockAnchorNode(t *testing.T) {
	doc := Parse("A paragraph ^p1\n\nnot^anchor here\n\nmid ^x text\n")
	var values []string
	_ = doc.Visit(func(n ast.Node, s Scope) (ast.WalkStatus, error) {
		if ba, ok := n.(*BlockAnchor); ok {
			values = append(values, ba.Value)
		}
		return ast.WalkContinue, nil
	})
	if len(values) != 1 || values[0] != "p1" {
		t.Errorf("anchors = %v, want [p1]", values)
	}
}

func TestSpanWidensToLines(t *testing.T) {
	body := "intro\n\n- one\n- two\n\n```go\ncode\n```\n\nTitle\n=====\n"
	doc := Parse(body)
	var got []string
	for c := doc.Root.FirstChild(); c != nil; c = c.NextSibling() {
		s, e, ok := doc.Span(c)
		if !ok {
			t.Fatalf("no span for %s", c.Kind())
		}
		got = append(got, body[s:e])
	}
	want := []string{"intro", "- one\n- two", "```go\ncode\n```", "Title\n====="}
	if len(got) != len(want) {
		t.Fatalf("spans = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPosition(t *testing.T) {
	doc := Parse("ab\ncd [[x]]\n")
	line, col := doc.Position(6)
	if line != 2 || col != 4 {
		t.Errorf("Position = %d:%d, want 2:4", line, col)
	}
}
