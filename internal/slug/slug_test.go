package slug

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Et et quam culpa.", "et-et-quam-culpa"},
		{"Hello World", "hello-world"},
		{"foo bar", "foo-bar"},
		{"  Trim Me  ", "trim-me"},
		{"C++ & Go!", "c--go"},
		{"snake_case-kept", "snake_case-kept"},
		{"Ünïcode Wörds", "ünïcode-wörds"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSluggerDeduplicates(t *testing.T) {
	g := New()
	got := []string{g.Slug("Foo"), g.Slug("foo"), g.Slug("FOO"), g.Slug("Bar")}
	want := []string{"foo", "foo-1", "foo-2", "bar"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSluggerSkipsLiteralSuffix(t *testing.T) {
	g := New()
	first := g.Slug("foo-1")
	second := g.Slug("foo")
	third := g.Slug("foo")
	if first != "foo-1" || second != "foo" {
		t.Fatalf("got %q, %q", first, second)
	}
	if third != "foo-2" {
		t.Errorf("third = %q, want %q", third, "foo-2")
	}
}

func TestReserve(t *testing.T) {
	g := New()
	g.Reserve("paragraph")
	if !g.Taken("paragraph") {
		t.Fatal("paragraph should be taken")
	}
	if got := g.Unique("paragraph"); got != "paragraph-1" {
		t.Errorf("Unique = %q, want %q", got, "paragraph-1")
	}
}
