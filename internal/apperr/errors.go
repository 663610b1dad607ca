// Package apperr holds the sentinel errors shared by the service, API and
// MCP layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrAmbiguous     = errors.New("ambiguous")
	ErrInvalidInput  = errors.New("invalid input")
)
