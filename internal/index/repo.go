package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/starford/noteweave/internal/apperr"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/resolve"
)

// LinkRow is one stored outgoing link.
type LinkRow struct {
	SrcVault string `json:"srcVault"`
	SrcFname string `json:"srcFname"`
	ToVault  string `json:"toVault,omitempty"`
	ToFname  string `json:"toFname"`
	ToAnchor string `json:"toAnchor,omitempty"`
	Type     string `json:"type"`
	Syntax   string `json:"syntax"`
	Raw      string `json:"raw"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Line     int    `json:"line"`
}

// UpsertNote inserts or replaces a note and its outgoing links within a transaction.
func (db *DB) UpsertNote(n *models.Note, links []link.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	customJSON := []byte("{}")
	if len(n.Custom) > 0 {
		if customJSON, err = json.Marshal(n.Custom); err != nil {
			return fmt.Errorf("index: encode custom fields: %w", err)
		}
	}
	updated := n.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO notes (vault, fname, id, title, checksum, custom, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vault, fname) DO UPDATE SET
			id         = excluded.id,
			title      = excluded.title,
			checksum   = excluded.checksum,
			custom     = excluded.custom,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Vault, n.Fname, n.ID, n.Title, n.Checksum, string(customJSON), n.Body, updated)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE src_vault = ? AND src_fname = ?`, n.Vault, n.Fname); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO links (src_vault, src_fname, to_vault, to_fname, to_anchor, type, syntax, raw, start_pos, end_pos, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			toVault, toFname := l.To.Vault, l.To.Fname
			if l.IsSelf() {
				toVault, toFname = n.Vault, n.Fname
			}
			if _, err := stmt.Exec(n.Vault, n.Fname, toVault, toFname, l.To.Anchor,
				l.Type.String(), l.SyntaxName(), l.Raw, l.Start, l.End, l.Line); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note and its outgoing links.
func (db *DB) DeleteNote(vault, fname string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE src_vault = ? AND src_fname = ?`, vault, fname); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE vault = ? AND fname = ?`, vault, fname); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(vault, fname string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE vault = ? AND fname = ?`, vault, fname).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed note keyed by
// vault/fname.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT vault, fname, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var v, f, cs string
		if err := rows.Scan(&v, &f, &cs); err != nil {
			return nil, err
		}
		out[models.NoteKey(v, f)] = cs
	}
	return out, rows.Err()
}

const noteColumns = `vault, fname, id, title, checksum, custom, body, updated_at`

func scanNote(sc interface{ Scan(...any) error }) (*models.Note, error) {
	var (
		n      models.Note
		custom string
	)
	if err := sc.Scan(&n.Vault, &n.Fname, &n.ID, &n.Title, &n.Checksum, &custom, &n.Body, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if custom != "" && custom != "{}" {
		if err := json.Unmarshal([]byte(custom), &n.Custom); err != nil {
			return nil, fmt.Errorf("index: decode custom fields of %s: %w", n.Key(), err)
		}
	}
	return &n, nil
}

// GetNote returns an indexed note. It wraps apperr.ErrNotFound when the
// note is not indexed.
func (db *DB) GetNote(vault, fname string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE vault = ? AND fname = ?`, vault, fname)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", models.NoteKey(vault, fname), apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// Lookup implements resolve.Corpus. Candidates come back in workspace vault
// order.
func (db *DB) Lookup(fname, vault string) ([]*models.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE fname = ?`
	args := []any{fname}
	if vault != "" {
		q += ` AND vault = ?`
		args = append(args, vault)
	}
	notes, err := db.queryNotes(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: lookup: %w", err)
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return db.vaultRank(notes[i].Vault) < db.vaultRank(notes[j].Vault)
	})
	return notes, nil
}

// Snapshot loads every indexed note into an immutable in-memory corpus.
func (db *DB) Snapshot() (*resolve.MemCorpus, error) {
	notes, err := db.queryNotes(`SELECT ` + noteColumns + ` FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: snapshot: %w", err)
	}
	return resolve.NewMemCorpus(db.vaultOrder(), notes...), nil
}

func (db *DB) queryNotes(q string, args ...any) ([]*models.Note, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListNotes returns a page of note metadata ordered by vault and fname,
// plus the total count. An empty vault lists every vault.
func (db *DB) ListNotes(vault string, limit, offset int) ([]models.NoteMetadata, int, error) {
	where, args := "", []any{}
	if vault != "" {
		where, args = ` WHERE vault = ?`, append(args, vault)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`SELECT vault, fname, checksum, updated_at FROM notes`+where+
		` ORDER BY vault, fname LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.NoteMetadata
	for rows.Next() {
		var m models.NoteMetadata
		if err := rows.Scan(&m.Vault, &m.Fname, &m.Checksum, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Backlinks returns the stored links that may point at vault/fname: those
// naming the vault explicitly and those leaving it open.
func (db *DB) Backlinks(vault, fname string) ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT src_vault, src_fname, to_vault, to_fname, to_anchor, type, syntax, raw, start_pos, end_pos, line
		FROM links
		WHERE to_fname = ? AND (to_vault = ? OR to_vault = '')
		ORDER BY src_vault, src_fname, start_pos`, fname, vault)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var r LinkRow
		if err := rows.Scan(&r.SrcVault, &r.SrcFname, &r.ToVault, &r.ToFname, &r.ToAnchor,
			&r.Type, &r.Syntax, &r.Raw, &r.Start, &r.End, &r.Line); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
