// Package parser turns raw note files into models.Note values and note
// bodies into goldmark syntax trees carrying wikilink, note-ref and block
// anchor nodes.
package parser

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/noteweave/internal/models"
)

// noteNamespace seeds the deterministic ids of notes without an "id" field.
var noteNamespace = uuid.MustParse("5b0f6a52-8f64-4a3f-9a52-6f1d0c3e7a11")

// reservedKeys are frontmatter fields mapped onto models.Note itself.
var reservedKeys = map[string]struct{}{
	"id":      {},
	"title":   {},
	"desc":    {},
	"created": {},
	"updated": {},
}

// ParseNote splits data into frontmatter and body and builds the note of
// vault/fname from them.
func ParseNote(vault, fname string, data []byte) (*models.Note, error) {
	fm, _, body := splitFrontmatter(data)

	n := &models.Note{
		ID:    noteID(fm, vault, fname),
		Fname: fname,
		Vault: vault,
		Title: deriveTitle(fm, body, fname),
		Body:  body,
	}
	for k, v := range fm {
		if _, ok := reservedKeys[k]; ok {
			continue
		}
		if n.Custom == nil {
			n.Custom = make(map[string]any)
		}
		n.Custom[k] = v
	}
	return n, nil
}

// SplitFrontmatter returns the raw frontmatter block (delimiters and the
// blank lines after it included) and the body, so that front+body == data.
func SplitFrontmatter(data []byte) (front, body string) {
	_, front, body = splitFrontmatter(data)
	return front, body
}

// Frontmatter returns the decoded YAML frontmatter of data, or nil.
func Frontmatter(data []byte) map[string]any {
	fm, _, _ := splitFrontmatter(data)
	return fm
}

// Compose joins a raw frontmatter block and a body back into file content.
func Compose(front, body string) []byte {
	return []byte(front + body)
}

// RenderFrontmatter encodes fm as a delimited YAML block followed by one
// blank line.
func RenderFrontmatter(fm map[string]any) (string, error) {
	if len(fm) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}
	return "---\n" + string(out) + "---\n\n", nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := bytes.TrimLeft(afterDelim, "\n\r")
	cut := len(data) - len(body)

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML is kept as body text.
		return nil, "", string(data)
	}

	return fm, string(data[:cut]), string(body)
}

func noteID(fm map[string]any, vault, fname string) string {
	if s, ok := fm["id"].(string); ok && s != "" {
		return s
	}
	return uuid.NewSHA1(noteNamespace, []byte(models.NoteKey(vault, fname))).String()
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise the last hierarchy level of fname.
func deriveTitle(fm map[string]any, body, fname string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	if i := strings.LastIndex(fname, "."); i >= 0 {
		return fname[i+1:]
	}
	return fname
}
