package api

import (
	"github.com/starford/noteweave/internal/anchor"
	"github.com/starford/noteweave/internal/block"
	"github.com/starford/noteweave/internal/index"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/noteservice"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}

// VaultsResponse lists the workspace vaults in order.
type VaultsResponse struct {
	Vaults []models.Vault `json:"vaults" validate:"required"`
}

// AnchorsResponse lists the anchors of a note.
type AnchorsResponse struct {
	Anchors []anchor.Anchor `json:"anchors" validate:"required"`
}

// BlocksResponse lists the blocks of a note.
type BlocksResponse struct {
	Blocks []block.Block `json:"blocks" validate:"required"`
}

// LinkView is a link together with its written syntax.
type LinkView struct {
	link.Link
	SyntaxName string `json:"syntax" example:"wiki"`
}

// LinksResponse lists the links of a note.
type LinksResponse struct {
	Links []LinkView `json:"links" validate:"required"`
}

// BacklinksResponse lists the links pointing at a note.
type BacklinksResponse struct {
	Backlinks []index.LinkRow `json:"backlinks" validate:"required"`
}

// ResolveRequest is the request body for resolving a location.
type ResolveRequest struct {
	To   link.Location `json:"to" validate:"required"`
	From link.Location `json:"from"`
}

// RenameRequest is the request body for renaming a note.
type RenameRequest struct {
	From link.Location `json:"from" validate:"required"`
	To   link.Location `json:"to" validate:"required"`
}

// NormalizeRequest is the optional body of the normalize endpoint.
type NormalizeRequest struct {
	Write bool `json:"write" example:"true"`
}

func linkViews(links []link.Link) []LinkView {
	out := make([]LinkView, len(links))
	for i, l := range links {
		out[i] = LinkView{Link: l, SyntaxName: l.SyntaxName()}
	}
	return out
}
