package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/noteweave/internal/noteservice"
	"github.com/starford/noteweave/internal/resolve"
	"github.com/starford/noteweave/internal/testutil"
)

func testServer(t *testing.T, notes map[string]string) (*Server, *testutil.Workspace) {
	t.Helper()
	ws := testutil.TestWorkspace(t, "vault1", "vault2")
	for key, body := range notes {
		vault, fname, _ := strings.Cut(key, "/")
		ws.WriteNote(t, vault, fname, body)
	}
	db := testutil.TestDB(t)
	ws.Sync(t, db)

	svc := noteservice.NewService(ws.Workspace, db, noteservice.Options{
		Policy: resolve.PolicyStrict,
		Logger: testutil.Logger(),
	})
	return New(svc, "test"), ws
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"read_note":       srv.readNote,
		"list_notes":      srv.listNotes,
		"find_links":      srv.findLinks,
		"list_anchors":    srv.listAnchors,
		"list_blocks":     srv.listBlocks,
		"resolve_link":    srv.resolveLink,
		"expand_note":     srv.expandNote,
		"get_backlinks":   srv.getBacklinks,
		"normalize_refs":  srv.normalizeRefs,
		"rename_note":     srv.renameNote,
		"get_link_syntax": srv.getLinkSyntax,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var sample = map[string]string{
	"vault1/foo":   "# Intro\n\nfirst ^p1\n\n## Details\n\nmore text\n",
	"vault1/bar":   "see [[foo#intro]] and ![[foo#details]]\n",
	"vault2/baz":   "cross [[dendron://vault1/foo]]\n",
	"vault1/old":   "((ref: [[foo]]#Details))\n",
	"vault1/inner": "`[[foo]]` is code\n",
}

func TestReadAndListNotes(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "read_note", map[string]any{"vault": "vault1", "fname": "bar"})
	if got := resultText(r); got != sample["vault1/bar"] {
		t.Errorf("read result = %q", got)
	}

	r = callTool(t, srv, "list_notes", map[string]any{"vault": "vault2"})
	if got := resultText(r); got != "vault2/baz" {
		t.Errorf("list result = %q", got)
	}

	r = callTool(t, srv, "read_note", map[string]any{"vault": "vault1", "fname": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}

	r = callTool(t, srv, "read_note", map[string]any{"vault": "vault1"})
	if !r.IsError {
		t.Error("expected error for missing fname")
	}
}

func TestFindLinks(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "find_links", map[string]any{"vault": "vault1", "fname": "bar"})
	var links []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &links); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2", len(links))
	}
	if links[0]["type"] != "wiki" || links[1]["type"] != "ref" {
		t.Errorf("types = %v, %v", links[0]["type"], links[1]["type"])
	}

	r = callTool(t, srv, "find_links", map[string]any{"vault": "vault1", "fname": "bar", "type": "ref"})
	links = nil
	_ = json.Unmarshal([]byte(resultText(r)), &links)
	if len(links) != 1 || links[0]["raw"] != "![[foo#details]]" {
		t.Errorf("ref links = %v", links)
	}

	r = callTool(t, srv, "find_links", map[string]any{"vault": "vault1", "fname": "inner"})
	if got := strings.TrimSpace(resultText(r)); got != "[]" {
		t.Errorf("links in code = %s, want []", got)
	}

	r = callTool(t, srv, "find_links", map[string]any{"vault": "vault1", "fname": "bar", "type": "bogus"})
	if !r.IsError {
		t.Error("expected error for bad type")
	}
}

func TestAnchorsAndBlocks(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "list_anchors", map[string]any{"vault": "vault1", "fname": "foo"})
	text := resultText(r)
	for _, want := range []string{`"intro"`, `"p1"`, `"details"`} {
		if !strings.Contains(text, want) {
			t.Errorf("anchors missing %s: %s", want, text)
		}
	}

	r = callTool(t, srv, "list_blocks", map[string]any{"vault": "vault1", "fname": "foo"})
	var blocks []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &blocks); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if len(blocks) == 0 || !strings.Contains(resultText(r), `"p1"`) {
		t.Errorf("blocks = %s", resultText(r))
	}
}

func TestResolveLink(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "resolve_link", map[string]any{"link": "[[foo#intro]]"})
	var res noteservice.Resolution
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if res.Note == nil || res.Note.Vault != "vault1" || res.Note.Fname != "foo" {
		t.Errorf("note = %+v", res.Note)
	}
	if res.AnchorFound == nil || !*res.AnchorFound {
		t.Errorf("anchorFound = %v", res.AnchorFound)
	}

	r = callTool(t, srv, "resolve_link", map[string]any{"link": "dendron://vault2/foo"})
	res = noteservice.Resolution{}
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Note != nil || res.Error == "" {
		t.Errorf("resolution in wrong vault = %+v", res)
	}

	r = callTool(t, srv, "resolve_link", map[string]any{"link": "[[]]"})
	if !r.IsError {
		t.Error("expected error for empty link")
	}
}

func TestExpandNote(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "expand_note", map[string]any{"vault": "vault1", "fname": "bar"})
	text := resultText(r)
	if !strings.Contains(text, "more text") || strings.Contains(text, "![[") {
		t.Errorf("expanded = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t, sample)

	r := callTool(t, srv, "get_backlinks", map[string]any{"vault": "vault1", "fname": "foo"})
	text := resultText(r)
	for _, want := range []string{"vault1/bar:1 [[foo#intro]]", "vault2/baz:1 [[dendron://vault1/foo]]"} {
		if !strings.Contains(text, want) {
			t.Errorf("backlinks missing %q:\n%s", want, text)
		}
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"vault": "vault2", "fname": "baz"})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks = %q", got)
	}
}

func TestNormalizeRefs(t *testing.T) {
	srv, ws := testServer(t, sample)

	r := callTool(t, srv, "normalize_refs", map[string]any{"vault": "vault1", "fname": "old"})
	var res noteservice.NormalizeResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if res.Converted != 1 || res.Written {
		t.Errorf("dry run = %+v", res)
	}
	if got := ws.ReadNote(t, "vault1", "old"); got != sample["vault1/old"] {
		t.Errorf("dry run wrote %q", got)
	}

	callTool(t, srv, "normalize_refs", map[string]any{"vault": "vault1", "fname": "old", "write": true})
	if got := ws.ReadNote(t, "vault1", "old"); got != "![[foo#details]]\n" {
		t.Errorf("normalized = %q", got)
	}
}

func TestRenameNote(t *testing.T) {
	srv, ws := testServer(t, sample)

	r := callTool(t, srv, "rename_note", map[string]any{
		"vault": "vault1", "fname": "foo", "new_fname": "project.foo",
	})
	if r.IsError {
		t.Fatalf("rename: %s", resultText(r))
	}
	if got := ws.ReadNote(t, "vault1", "bar"); got != "see [[project.foo#intro]] and ![[project.foo#details]]\n" {
		t.Errorf("bar = %q", got)
	}
	if got := ws.ReadNote(t, "vault2", "baz"); got != "cross [[dendron://vault1/project.foo]]\n" {
		t.Errorf("baz = %q", got)
	}

	r = callTool(t, srv, "rename_note", map[string]any{
		"vault": "vault1", "fname": "foo", "new_fname": "again",
	})
	if !r.IsError {
		t.Error("expected error renaming a missing note")
	}
}

func TestLinkSyntax(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "get_link_syntax", nil)
	if got := resultText(r); got != LinkSyntaxContract {
		t.Error("get_link_syntax did not return the contract")
	}
	if !strings.Contains(LinkSyntaxContract, "dendron://") {
		t.Error("contract does not document cross-vault links")
	}
}
