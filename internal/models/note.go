// Package models defines the domain types shared by the noteweave packages.
package models

import "time"

// Note is a single markdown note of a vault. Fname is the file name without
// the .md extension; hierarchy levels are separated by dots (foo.bar).
type Note struct {
	ID        string         `json:"id"`
	Fname     string         `json:"fname"`
	Vault     string         `json:"vault"`
	Title     string         `json:"title,omitempty"`
	Custom    map[string]any `json:"custom,omitempty"`
	Body      string         `json:"body"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Key identifies a note across the workspace.
func (n *Note) Key() string {
	return NoteKey(n.Vault, n.Fname)
}

// NoteKey formats the workspace-wide identity of a note.
func NoteKey(vault, fname string) string {
	return vault + "/" + fname
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Vault     string    `json:"vault"`
	Fname     string    `json:"fname"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vault is a named root directory holding notes.
type Vault struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}
