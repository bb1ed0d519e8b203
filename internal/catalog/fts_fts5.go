//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/harwell/attest/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(
			chunk_id UNINDEXED,
			document_id UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsertChunks(tx *sql.Tx, chunks []models.Chunk) error {
	for _, c := range chunks {
		if _, err := tx.Exec(`INSERT INTO chunk_fts (chunk_id, document_id, text) VALUES (?, ?, ?)`,
			c.ID, c.DocumentID, c.Text); err != nil {
			return fmt.Errorf("catalog: insert fts chunk: %w", err)
		}
	}
	return nil
}

func ftsDeleteByDocument(tx *sql.Tx, documentID string) {
	_, _ = tx.Exec(`DELETE FROM chunk_fts WHERE document_id = ?`, documentID)
}

// SearchDocuments performs an FTS5 term search over chunk text and
// returns the distinct owning documents ranked by match quality.
func (db *DB) SearchDocuments(term string, limit int) ([]models.DocumentSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT document_id, min(rank) AS best
		FROM chunk_fts
		WHERE chunk_fts MATCH ?
		GROUP BY document_id
		ORDER BY best
		LIMIT ?
	`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return db.documentSummariesByIDs(ids)
}
