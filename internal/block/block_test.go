package block

import (
	"strings"
	"testing"
)

func lines(l ...string) string { return strings.Join(l, "\n") }

func TestExtract_Counts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"paragraphs", lines(
			"Et et quam culpa.",
			"",
			"Cumque molestiae qui deleniti.",
			"Eius odit commodi harum.",
			"",
			"Sequi ut non delectus tempore.",
		), 3},
		{"list", lines(
			"Et et quam culpa.",
			"",
			"* Cumque molestiae qui deleniti.",
			"* Eius odit commodi harum.",
			"",
			"Sequi ut non delectus tempore.",
		), 5},
		{"nested list", lines(
			"Et et quam culpa.",
			"",
			"* Cumque molestiae qui deleniti.",
			"* Eius odit commodi harum.",
			"  * Sequi ut non delectus tempore.",
			"  * In delectus quam sunt unde.",
			"* Quasi ex debitis aut sed.",
			"",
			"Perferendis officiis ut non.",
		), 8},
		{"table", lines(
			"Et et quam culpa.",
			"",
			"| Sapiente | accusamus |",
			"|----------|-----------|",
			"| Laborum  | libero    |",
			"| Ullam    | optio     |",
			"",
			"Sequi ut non delectus tempore.",
		), 3},
		{"skips rules and html", lines(
			"one",
			"",
			"---",
			"",
			"<div>raw</div>",
			"",
			"two",
		), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromNote(tt.body); len(got) != tt.want {
				t.Errorf("len(blocks) = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestExtract_ExistingAnchors(t *testing.T) {
	body := lines(
		"# Et et quam culpa. ^header",
		"",
		"Ullam vel eius reiciendis. ^paragraph",
		"",
		"* Cumque molestiae qui deleniti. ^item1",
		"* Eius odit commodi harum. ^item2",
		"  * Sequi ut non delectus tempore. ^item3",
		"",
		"^list",
		"",
		"| Sapiente | accusamus |",
		"|----------|-----------|",
		"| Laborum  | libero    |",
		"| Ullam    | optio     | ^table",
	)
	blocks := FromNote(body)
	want := []string{"et-et-quam-culpa", "paragraph", "item1", "item2", "item3", "list", "table"}
	if len(blocks) != len(want) {
		t.Fatalf("len(blocks) = %d, want %d", len(blocks), len(want))
	}
	for i, w := range want {
		if blocks[i].Anchor.Value != w {
			t.Errorf("blocks[%d].Anchor = %q, want %q", i, blocks[i].Anchor.Value, w)
		}
		if blocks[i].Anchor.Generated {
			t.Errorf("blocks[%d] anchor should be explicit", i)
		}
	}
	if blocks[5].Kind != KindList || blocks[6].Kind != KindTable {
		t.Errorf("kinds = %v, %v", blocks[5].Kind, blocks[6].Kind)
	}
	if !blocks[0].Matches("^header") {
		t.Error("heading should answer to its ^header label")
	}
}

func TestExtract_Headers(t *testing.T) {
	body := lines(
		"# Et et quam culpa. ^anchor",
		"",
		"Cumque molestiae qui deleniti.",
		"",
		"# Eius odit commodi harum.",
		"",
		"Sequi ut non delectus tempore.",
	)
	blocks := FromNote(body)
	if len(blocks) != 4 {
		t.Fatalf("len(blocks) = %d, want 4", len(blocks))
	}
	if blocks[0].Anchor.Value != "et-et-quam-culpa" {
		t.Errorf("blocks[0] = %q", blocks[0].Anchor.Value)
	}
	if blocks[2].Anchor.Value != "eius-odit-commodi-harum" {
		t.Errorf("blocks[2] = %q", blocks[2].Anchor.Value)
	}
}

func TestExtract_GeneratedAnchors(t *testing.T) {
	body := lines(
		"First. ^paragraph",
		"",
		"Second.",
		"",
		"- a",
		"- b ^item1",
		"- c",
		"",
		"```",
		"code",
		"```",
		"",
		"> quoted",
	)
	blocks := FromNote(body)
	got := make([]string, len(blocks))
	for i, b := range blocks {
		got[i] = b.Anchor.Value
	}
	want := []string{"paragraph", "paragraph-1", "item2", "item1", "item3", "list", "code", "quote"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("anchors = %v, want %v", got, want)
	}
	if !blocks[1].Anchor.Generated || blocks[0].Anchor.Generated {
		t.Error("Generated flag mismatch")
	}
}

func TestExtract_Spans(t *testing.T) {
	body := lines(
		"Para one.",
		"",
		"- a",
		"  - nested",
		"- b",
	)
	blocks := FromNote(body)
	want := []string{"Para one.", "- a\n  - nested", "  - nested", "- b", "- a\n  - nested\n- b"}
	if len(blocks) != len(want) {
		t.Fatalf("len(blocks) = %d, want %d", len(blocks), len(want))
	}
	for i, w := range want {
		if got := body[blocks[i].Start:blocks[i].End]; got != w {
			t.Errorf("blocks[%d] = %q, want %q", i, got, w)
		}
	}
}

func TestLocate(t *testing.T) {
	blocks := FromNote(lines("# Intro", "", "text ^t1", "", "# Next"))
	if got := Locate(blocks, "Intro"); got != 0 {
		t.Errorf("Locate(Intro) = %d, want 0", got)
	}
	if got := Locate(blocks, "^t1"); got != 1 {
		t.Errorf("Locate(^t1) = %d, want 1", got)
	}
	if got := Locate(blocks, "t1"); got != 1 {
		t.Errorf("Locate(t1) = %d, want 1", got)
	}
	if got := Locate(blocks, "missing"); got != -1 {
		t.Errorf("Locate(missing) = %d, want -1", got)
	}
}
