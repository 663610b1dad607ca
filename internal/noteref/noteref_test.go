package noteref

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/resolve"
)

func lines(l ...string) string { return strings.Join(l, "\n") }

func expander(opts Options, notes ...*models.Note) *Expander {
	return New(resolve.New(resolve.NewMemCorpus([]string{"vault1", "vault2"}, notes...)), opts)
}

func TestNormalizeLegacy(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"((ref: [[bar]]))", "![[bar]]"},
		{"((ref: [[bar]]#foo))", "![[bar#foo]]"},
		{"((ref: [[bar]]#foo,1))", "![[bar#foo,1]]"},
		{"((ref: [[bar]]#foo,1:#gamma))", "![[bar#foo,1:#gamma]]"},
		{"((ref: [[bar]]#foo bar))", "![[bar#foo-bar]]"},
		{"((ref: [[bar]]#*))", "![[bar#*]]"},
		{"text ((ref: [[a]])) and ((ref: [[b]]#x))\n", "text ![[a]] and ![[b#x]]\n"},
		{"`((ref: [[bar]]))`", "`((ref: [[bar]]))`"},
		{"![[bar#foo,1]]", "![[bar#foo,1]]"},
	}
	for _, tt := range tests {
		got := NormalizeLegacy(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeLegacy(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := NormalizeLegacy(got); again != got {
			t.Errorf("NormalizeLegacy not idempotent on %q: %q", got, again)
		}
	}
}

func TestSelect(t *testing.T) {
	body := lines(
		"# Alpha",
		"",
		"first para",
		"",
		"# Beta",
		"",
		"second para ^p2",
		"",
		"# Gamma",
		"",
		"third para",
	)
	tests := []struct {
		name string
		r    *link.RefRange
		want string
	}{
		{"nil", nil, body},
		{"wildcard", &link.RefRange{AnchorStart: "*"}, body},
		{"start to end", &link.RefRange{AnchorStart: "beta"}, lines("# Beta", "", "second para ^p2", "", "# Gamma", "", "third para")},
		{"offset", &link.RefRange{AnchorStart: "alpha", Offset: 1, HasOffset: true}, lines("# Alpha", "", "first para")},
		{"zero offset", &link.RefRange{AnchorStart: "beta", HasOffset: true}, "# Beta"},
		{"range", &link.RefRange{AnchorStart: "alpha", AnchorEnd: "beta"}, lines("# Alpha", "", "first para", "", "# Beta")},
		{"offset range", &link.RefRange{AnchorStart: "alpha", Offset: 1, HasOffset: true, AnchorEnd: "^p2"}, lines("first para", "", "# Beta", "", "second para ^p2")},
		{"block label", &link.RefRange{AnchorStart: "^p2", HasOffset: true}, "second para ^p2"},
		{"header text", &link.RefRange{AnchorStart: "Gamma"}, lines("# Gamma", "", "third para")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(body, tt.r)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := Select(body, &link.RefRange{AnchorStart: "missing"}); !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("err = %v, want ErrAnchorNotFound", err)
	}
	if _, err := Select(body, &link.RefRange{AnchorStart: "alpha", AnchorEnd: "missing"}); !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("end err = %v, want ErrAnchorNotFound", err)
	}
}

func TestSelect_ListOffset(t *testing.T) {
	body := lines(
		"- one ^i1",
		"- two",
		"- three",
		"",
		"after",
	)
	got, err := Select(body, &link.RefRange{AnchorStart: "^i1", Offset: 1, HasOffset: true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "- one ^i1\n- two" {
		t.Errorf("got %q", got)
	}
	got, _ = Select(body, &link.RefRange{AnchorStart: "^i1", Offset: 3, HasOffset: true})
	if got != "- one ^i1\n- two\n- three" {
		t.Errorf("list group = %q", got)
	}
}

func TestExpand_Basic(t *testing.T) {
	foo := &models.Note{Fname: "foo", Vault: "vault1", Body: "before\n\n![[bar#beta]]\n\nafter"}
	bar := &models.Note{Fname: "bar", Vault: "vault1", Body: "# Alpha\n\nskip\n\n# Beta\n\nkeep"}
	exp := expander(Options{}, foo, bar).Expand(foo)

	want := "before\n\n# Beta\n\nkeep\n\nafter"
	if exp.Body != want {
		t.Errorf("body = %q, want %q", exp.Body, want)
	}
	if len(exp.Embeds) != 1 || exp.Embeds[0].Status != StatusExpanded {
		t.Fatalf("embeds = %+v", exp.Embeds)
	}
	if exp.Embeds[0].Target.Fname != "bar" {
		t.Errorf("target = %+v", exp.Embeds[0].Target)
	}
}

func TestExpand_LegacyAndNested(t *testing.T) {
	a := &models.Note{Fname: "a", Vault: "vault1", Body: "A ((ref: [[b]]))"}
	b := &models.Note{Fname: "b", Vault: "vault1", Body: "B ![[c]]"}
	c := &models.Note{Fname: "c", Vault: "vault1", Body: "C"}
	exp := expander(Options{}, a, b, c).Expand(a)
	if exp.Body != "A B C" {
		t.Errorf("body = %q, want %q", exp.Body, "A B C")
	}
	if len(exp.Embeds) != 1 || len(exp.Embeds[0].Children) != 1 {
		t.Fatalf("embeds = %+v", exp.Embeds)
	}
}

func TestExpand_Circular(t *testing.T) {
	a := &models.Note{Fname: "a", Vault: "vault1", Body: "A ![[b]]"}
	b := &models.Note{Fname: "b", Vault: "vault1", Body: "B ![[a]]"}
	exp := expander(Options{}, a, b).Expand(a)
	want := "A B ERROR: circular reference to dendron://vault1/a"
	if exp.Body != want {
		t.Errorf("body = %q, want %q", exp.Body, want)
	}
	if got := exp.Embeds[0].Children[0].Status; got != StatusCircular {
		t.Errorf("status = %v, want circular", got)
	}
}

func TestExpand_SelfReference(t *testing.T) {
	a := &models.Note{Fname: "a", Vault: "vault1", Body: "![[a]]"}
	exp := expander(Options{}, a).Expand(a)
	if exp.Embeds[0].Status != StatusCircular {
		t.Errorf("status = %v, want circular", exp.Embeds[0].Status)
	}
}

func TestExpand_SameNoteAnchor(t *testing.T) {
	a := &models.Note{Fname: "a", Vault: "vault1", Body: "# Top\n\nintro\n\n## Local\n\nbody\n\n![[#local]]\n"}
	exp := expander(Options{}, a).Expand(a)
	if len(exp.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(exp.Embeds))
	}
	if exp.Embeds[0].Status != StatusCircular {
		t.Errorf("status = %v, want circular", exp.Embeds[0].Status)
	}
}

func TestExpand_TooDeep(t *testing.T) {
	n1 := &models.Note{Fname: "n1", Vault: "vault1", Body: "1 ![[n2]]"}
	n2 := &models.Note{Fname: "n2", Vault: "vault1", Body: "2 ![[n3]]"}
	n3 := &models.Note{Fname: "n3", Vault: "vault1", Body: "3 ![[n4]]"}
	n4 := &models.Note{Fname: "n4", Vault: "vault1", Body: "4"}

	exp := expander(Options{MaxDepth: 2}, n1, n2, n3, n4).Expand(n1)
	want := "1 2 3 ERROR: max reference depth 2 exceeded at dendron://vault1/n4"
	if exp.Body != want {
		t.Errorf("body = %q, want %q", exp.Body, want)
	}

	exp = expander(Options{}, n1, n2, n3, n4).Expand(n1)
	if exp.Body != "1 2 3 4" {
		t.Errorf("default depth body = %q", exp.Body)
	}
}

func TestExpand_Failures(t *testing.T) {
	foo := &models.Note{Fname: "foo", Vault: "vault1", Body: "![[missing]] ![[dup]] ![[bar#nope]] ok"}
	dup1 := &models.Note{Fname: "dup", Vault: "vault1", Body: "d1"}
	dup2 := &models.Note{Fname: "dup", Vault: "vault2", Body: "d2"}
	bar := &models.Note{Fname: "bar", Vault: "vault1", Body: "# Only"}

	exp := expander(Options{}, foo, dup1, dup2, bar).Expand(foo)
	want := []Status{StatusNotFound, StatusAmbiguous, StatusAnchorNotFound}
	if len(exp.Embeds) != len(want) {
		t.Fatalf("embeds = %+v", exp.Embeds)
	}
	for i, w := range want {
		if exp.Embeds[i].Status != w {
			t.Errorf("embeds[%d] = %v, want %v", i, exp.Embeds[i].Status, w)
		}
	}
	if !strings.HasSuffix(exp.Body, " ok") || !strings.Contains(exp.Body, "ERROR: note not found: missing") {
		t.Errorf("body = %q", exp.Body)
	}

	exp = expander(Options{Policy: resolve.PolicyFirst}, foo, dup1, dup2, bar).Expand(foo)
	if exp.Embeds[1].Status != StatusExpanded || !strings.Contains(exp.Body, " d1 ") {
		t.Errorf("first policy body = %q", exp.Body)
	}
}

func TestExpand_CustomMarker(t *testing.T) {
	foo := &models.Note{Fname: "foo", Vault: "vault1", Body: "x ![[missing]]"}
	exp := expander(Options{Marker: func(e Embed) string { return "<" + e.Status.String() + ">" }}, foo).Expand(foo)
	if exp.Body != "x <not-found>" {
		t.Errorf("body = %q", exp.Body)
	}
}

func TestExpansionDocument(t *testing.T) {
	exp := &Expansion{Body: "# Title\n\ntext"}
	if exp.Document().Root.ChildCount() != 2 {
		t.Errorf("unexpected document shape")
	}
}
