package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteParams extracts vault and fname from the URL. Encoded characters from
// OpenAPI clients are decoded.
func noteParams(r *http.Request) (vault, fname string) {
	unescape := func(s string) string {
		if d, err := url.PathUnescape(s); err == nil {
			return d
		}
		return s
	}
	return unescape(chi.URLParam(r, "vault")), unescape(chi.URLParam(r, "fname"))
}

// ListVaults handles GET /api/vaults.
//
//	@Summary		List the workspace vaults in lookup order
//	@Tags			vaults
//	@Produce		json
//	@Success		200	{object}	VaultsResponse
//	@Security		BearerAuth
//	@Router			/vaults [get]
func (h *Handler) ListVaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VaultsResponse{Vaults: h.svc.Vaults()})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List indexed notes with optional pagination
//	@Tags			notes
//	@Produce		json
//	@Param			vault	query		string	false	"Restrict to one vault"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), q.Get("vault"), limit, offset)
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{vault}/{fname}.
//
//	@Summary		Get a single note with its backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	note, err := h.svc.GetNote(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Anchors handles GET /api/notes/{vault}/{fname}/anchors.
//
//	@Summary		List header and block anchors of a note
//	@Tags			links
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	AnchorsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/anchors [get]
func (h *Handler) Anchors(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	anchors, err := h.svc.Anchors(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "anchors", err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorsResponse{Anchors: anchors})
}

// Blocks handles GET /api/notes/{vault}/{fname}/blocks.
//
//	@Summary		List the referenceable blocks of a note
//	@Tags			links
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	BlocksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/blocks [get]
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	blocks, err := h.svc.Blocks(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Blocks: blocks})
}

// Links handles GET /api/notes/{vault}/{fname}/links.
//
//	@Summary		List wikilinks and note references of a note
//	@Tags			links
//	@Produce		json
//	@Param			vault		path		string	true	"Vault name"
//	@Param			fname		path		string	true	"Note fname"
//	@Param			type		query		string	false	"Link type"	Enums(wiki, ref)
//	@Param			to			query		string	false	"Target fname"
//	@Param			toVault		query		string	false	"Target vault"
//	@Param			toAnchor	query		string	false	"Target anchor"
//	@Success		200			{object}	LinksResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/links [get]
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	q := r.URL.Query()
	filter := link.Filter{To: link.Location{
		Fname:  q.Get("to"),
		Vault:  q.Get("toVault"),
		Anchor: q.Get("toAnchor"),
	}}
	if s := q.Get("type"); s != "" {
		t, err := link.ParseType(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		filter.Type = &t
	}
	links, err := h.svc.Links(r.Context(), vault, fname, filter)
	if err != nil {
		writeError(w, r, "links", err)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{Links: linkViews(links)})
}

// Backlinks handles GET /api/notes/{vault}/{fname}/backlinks.
//
//	@Summary		List indexed links pointing at a note
//	@Tags			links
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	bl, err := h.svc.Backlinks(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: bl})
}

// Expand handles GET /api/notes/{vault}/{fname}/expand.
//
//	@Summary		Expand the note references of a note
//	@Tags			links
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	noteref.Expansion
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/expand [get]
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	exp, err := h.svc.Expand(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "expand", err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// Normalize handles POST /api/notes/{vault}/{fname}/normalize.
//
//	@Summary		Convert legacy ((ref: ...)) references to ![[...]]
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			vault	path		string				true	"Vault name"
//	@Param			fname	path		string				true	"Note fname"
//	@Param			body	body		NormalizeRequest	false	"Set write to persist the result"
//	@Success		200		{object}	noteservice.NormalizeResult
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/normalize [post]
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	var req NormalizeRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
			return
		}
		if len(body) > 0 && !decodeBytes(w, body, &req) {
			return
		}
	}
	res, err := h.svc.NormalizeRefs(r.Context(), vault, fname, req.Write)
	if err != nil {
		writeError(w, r, "normalize", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PromoteH1 handles POST /api/notes/{vault}/{fname}/h1-title.
//
//	@Summary		Move the leading H1 heading into the frontmatter title
//	@Tags			notes
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/h1-title [post]
func (h *Handler) PromoteH1(w http.ResponseWriter, r *http.Request) {
	vault, fname := noteParams(r)
	n, err := h.svc.PromoteH1(r.Context(), vault, fname)
	if err != nil {
		writeError(w, r, "promote h1", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve a link target to notes
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Target and referring note"
//	@Success		200		{object}	noteservice.Resolution
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.To.Fname == "" && req.From.Fname == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("to.fname or from.fname is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), req.To, req.From)
	if err != nil {
		writeError(w, r, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rename handles POST /api/rename.
//
//	@Summary		Rename a note and rewrite every link to it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Old and new location"
//	@Success		200		{object}	noteservice.RenameResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename [post]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.RenameNote(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, r, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Sync handles POST /api/sync.
//
//	@Summary		Reindex changed notes of every vault
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	index.SyncResult
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sync(r.Context())
	if err != nil {
		writeError(w, r, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
