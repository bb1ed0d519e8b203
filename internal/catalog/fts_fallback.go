//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/harwell/attest/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; term search uses a LIKE fallback on chunks.text.
	return nil
}

func ftsInsertChunks(_ *sql.Tx, _ []models.Chunk) error {
	// Chunk text already lives in the chunks table; nothing extra to do.
	return nil
}

func ftsDeleteByDocument(_ *sql.Tx, _ string) {}

// SearchDocuments performs a LIKE-based term search over chunk text
// (fallback when FTS5 is not compiled in) and returns the distinct
// owning documents ordered by match count.
func (db *DB) SearchDocuments(term string, limit int) ([]models.DocumentSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + term + "%"
	rows, err := db.conn.Query(`
		SELECT document_id, count(*) AS hits
		FROM chunks
		WHERE text LIKE ?
		GROUP BY document_id
		ORDER BY hits DESC
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var hits int
		if err := rows.Scan(&id, &hits); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return db.documentSummariesByIDs(ids)
}
