// Package index provides the SQLite-backed note index: note bodies for
// resolution, and the link table behind backlink queries.
package index

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	vault      TEXT NOT NULL,
	fname      TEXT NOT NULL,
	id         TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	custom     TEXT NOT NULL DEFAULT '{}',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (vault, fname)
);

CREATE INDEX IF NOT EXISTS idx_notes_fname ON notes(fname);
CREATE INDEX IF NOT EXISTS idx_notes_id ON notes(id);

CREATE TABLE IF NOT EXISTS links (
	src_vault TEXT NOT NULL,
	src_fname TEXT NOT NULL,
	to_vault  TEXT NOT NULL DEFAULT '',
	to_fname  TEXT NOT NULL,
	to_anchor TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL DEFAULT 'wiki',
	syntax    TEXT NOT NULL DEFAULT 'wiki',
	raw       TEXT NOT NULL,
	start_pos INTEGER NOT NULL,
	end_pos   INTEGER NOT NULL,
	line      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_links_src ON links(src_vault, src_fname);
CREATE INDEX IF NOT EXISTS idx_links_to ON links(to_fname);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB

	mu     sync.RWMutex
	vaults []string
	order  map[string]int // vault name → workspace position
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn, order: map[string]int{}}, nil
}

// SetVaultOrder records the workspace order used to sort lookup results.
func (db *DB) SetVaultOrder(vaults []string) {
	order := make(map[string]int, len(vaults))
	for i, v := range vaults {
		order[v] = i
	}
	db.mu.Lock()
	db.vaults = append([]string(nil), vaults...)
	db.order = order
	db.mu.Unlock()
}

func (db *DB) vaultOrder() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vaults
}

func (db *DB) vaultRank(v string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if i, ok := db.order[v]; ok {
		return i
	}
	return len(db.order)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
