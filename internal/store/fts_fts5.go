//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/orgsynth/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			type UNINDEXED,
			id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM entities_fts`); err != nil {
		return fmt.Errorf("store: reset fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, ref models.Ref, title, body string) error {
	_, err := tx.Exec(`INSERT INTO entities_fts (type, id, title, body) VALUES (?, ?, ?, ?)`,
		ref.Type, ref.ID, title, body)
	if err != nil {
		return fmt.Errorf("store: insert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	rows, err := db.conn.Query(`
		SELECT type,
		       id,
		       title,
		       snippet(entities_fts, 3, '<b>', '</b>', '...', 32)
		FROM entities_fts
		WHERE entities_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
