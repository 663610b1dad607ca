// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the noteweave link tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/noteservice"
	"github.com/starford/noteweave/internal/parser"
)

// linkSyntaxURI is the resource holding LinkSyntaxContract.
const linkSyntaxURI = "noteweave://link-syntax"

// Server wraps the MCP server with noteweave tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all noteweave tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"noteweave",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	noteParams := []mcp.ToolOption{
		mcp.WithString("vault", mcp.Required(), mcp.Description("Vault name")),
		mcp.WithString("fname", mcp.Required(), mcp.Description("Note fname, without .md (e.g. project.roadmap)")),
	}
	tool := func(name, desc string, extra ...mcp.ToolOption) mcp.Tool {
		opts := append([]mcp.ToolOption{mcp.WithDescription(desc)}, noteParams...)
		return mcp.NewTool(name, append(opts, extra...)...)
	}

	s.mcp.AddTool(tool("read_note", "Read the raw Markdown content of a note."), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes, optionally of one vault."),
		mcp.WithString("vault", mcp.Description("Optional vault name (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(tool("find_links",
		"List the wikilinks and note references of a note with their positions.",
		mcp.WithString("type", mcp.Description("Optional link type filter"), mcp.Enum("wiki", "ref")),
		mcp.WithString("to", mcp.Description("Optional target fname filter")),
	), s.findLinks)

	s.mcp.AddTool(tool("list_anchors",
		"List the heading and block anchors a link can point at."), s.listAnchors)

	s.mcp.AddTool(tool("list_blocks",
		"List the referenceable blocks of a note with their anchors."), s.listBlocks)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a link target such as [[dendron://vault/fname#anchor]] "+
			"to the notes it may denote. Read the syntax via get_link_syntax first."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Link text, with or without the surrounding brackets")),
		mcp.WithString("from_vault", mcp.Description("Vault of the note the link is written in")),
		mcp.WithString("from_fname", mcp.Description("Fname of the note the link is written in")),
	), s.resolveLink)

	s.mcp.AddTool(tool("expand_note",
		"Return the note body with every note reference replaced by the referenced content."), s.expandNote)

	s.mcp.AddTool(tool("get_backlinks", "Find all links that point at the specified note."), s.getBacklinks)

	s.mcp.AddTool(tool("normalize_refs",
		"Convert legacy ((ref: [[fname]]#anchor)) references of a note to ![[fname#anchor]].",
		mcp.WithBoolean("write", mcp.Description("Persist the converted note (default false)")),
	), s.normalizeRefs)

	s.mcp.AddTool(tool("rename_note",
		"Rename a note and rewrite every link that points at it, keeping each link's style.",
		mcp.WithString("new_fname", mcp.Required(), mcp.Description("New fname")),
		mcp.WithString("new_vault", mcp.Description("Target vault (defaults to the current one)")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("get_link_syntax",
		mcp.WithDescription("Returns the link, anchor and note reference syntax. "+
			"Call this before writing links into notes."),
	), s.getLinkSyntax)

	s.mcp.AddResource(
		mcp.NewResource(linkSyntaxURI, "Link Syntax",
			mcp.WithResourceDescription("Wikilink, anchor and note reference syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func noteArgs(req mcp.CallToolRequest) (vault, fname string, err error) {
	if vault, err = req.RequireString("vault"); err != nil {
		return "", "", err
	}
	if fname, err = req.RequireString("fname"); err != nil {
		return "", "", err
	}
	return vault, fname, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetNote(ctx, vault, fname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx, req.GetString("vault", ""), 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keys := make([]string, len(items))
	for i, m := range items {
		keys[i] = m.Vault + "/" + m.Fname
	}
	return mcp.NewToolResultText(strings.Join(keys, "\n")), nil
}

func (s *Server) findLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter := link.Filter{To: link.Location{Fname: req.GetString("to", "")}}
	if typ := req.GetString("type", ""); typ != "" {
		t, err := link.ParseType(typ)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Type = &t
	}
	links, err := s.svc.Links(ctx, vault, fname, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type linkOut struct {
		link.Link
		Syntax string `json:"syntax"`
	}
	out := make([]linkOut, len(links))
	for i, l := range links {
		out[i] = linkOut{Link: l, Syntax: l.SyntaxName()}
	}
	return jsonResult(out)
}

func (s *Server) listAnchors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	anchors, err := s.svc.Anchors(ctx, vault, fname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(anchors)
}

func (s *Server) listBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blocks, err := s.svc.Blocks(ctx, vault, fname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(blocks)
}

// parseLinkArg accepts [[...]], ![[...]] or the bare inside of a link.
func parseLinkArg(raw string) link.Location {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(strings.TrimPrefix(s, "[["), "]]")
	t := parser.ParseTarget(s, true)
	return link.Location{Fname: t.Fname, Vault: t.Vault, Anchor: t.Anchor}
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to := parseLinkArg(raw)
	from := link.Location{Vault: req.GetString("from_vault", ""), Fname: req.GetString("from_fname", "")}
	if to.Fname == "" && from.Fname == "" {
		return mcp.NewToolResultError("link names no note and from_fname is empty"), nil
	}
	res, err := s.svc.Resolve(ctx, to, from)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) expandNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exp, err := s.svc.Expand(ctx, vault, fname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(exp.Body), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, vault, fname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, len(bl))
	for i, r := range bl {
		lines[i] = fmt.Sprintf("%s/%s:%d %s", r.SrcVault, r.SrcFname, r.Line, r.Raw)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) normalizeRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.NormalizeRefs(ctx, vault, fname, req.GetBool("write", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vault, fname, err := noteArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newFname, err := req.RequireString("new_fname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RenameNote(ctx,
		link.Location{Vault: vault, Fname: fname},
		link.Location{Vault: req.GetString("new_vault", ""), Fname: newFname})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getLinkSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkSyntaxContract), nil
}

func (s *Server) readLinkSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      linkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntaxContract,
		},
	}, nil
}
