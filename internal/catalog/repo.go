package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harwell/attest/internal/apperr"
	"github.com/harwell/attest/internal/models"
)

// InsertDocument inserts a document and its chunks within a transaction.
// Returns apperr.ErrAlreadyExists when a document with the same content
// checksum is already catalogued (re-ingesting identical content must
// not create a duplicate entry).
func (db *DB) InsertDocument(doc models.Document, chunks []models.Chunk) error {
	existing, err := db.DocumentByChecksum(doc.Checksum)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if existing != nil {
		return apperr.ErrAlreadyExists
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(doc.Tags)

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, standard, tags, checksum, uploaded_by, uploaded_at, size, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.Standard, string(tagsJSON), doc.Checksum,
		doc.UploadedBy, doc.UploadedAt, doc.Size, doc.Status)
	if err != nil {
		return fmt.Errorf("catalog: insert document: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO chunks (id, document_id, standard, section, paragraph, page_from, page_to, text, checksum, vector_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("catalog: prepare chunk insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range chunks {
			if _, err := stmt.Exec(c.ID, c.DocumentID, c.Standard, c.Section,
				c.Paragraph, c.PageFrom, c.PageTo, c.Text, c.Checksum, c.VectorRef); err != nil {
				return fmt.Errorf("catalog: insert chunk: %w", err)
			}
		}
	}

	if err := ftsInsertChunks(tx, chunks); err != nil {
		return err
	}

	return tx.Commit()
}

// Document returns one document by id.
func (db *DB) Document(id string) (*models.Document, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, standard, tags, checksum, uploaded_by, uploaded_at, size, status
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// DocumentByChecksum returns the document whose content checksum matches.
func (db *DB) DocumentByChecksum(checksum string) (*models.Document, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, standard, tags, checksum, uploaded_by, uploaded_at, size, status
		FROM documents WHERE checksum = ?
	`, checksum)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	var tagsJSON string
	var uploadedAt time.Time
	err := row.Scan(&d.ID, &d.Title, &d.Standard, &tagsJSON, &d.Checksum,
		&d.UploadedBy, &uploadedAt, &d.Size, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: scan document: %w", err)
	}
	d.UploadedAt = uploadedAt
	_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	return &d, nil
}

// ListDocuments returns paginated document summaries with an optional
// standard filter, newest first, plus the total count.
func (db *DB) ListDocuments(limit, offset int, standard string) ([]models.DocumentSummary, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if standard != "" {
		where = " WHERE standard = ?"
		args = append(args, standard)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count documents: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := db.conn.Query(`
		SELECT id, title, standard, tags, status, uploaded_at
		FROM documents`+where+`
		ORDER BY uploaded_at DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentSummary
	for rows.Next() {
		var s models.DocumentSummary
		var tagsJSON string
		if err := rows.Scan(&s.ID, &s.Title, &s.Standard, &tagsJSON, &s.Status, &s.UploadedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &s.Tags)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// SetStatus flips a document between active and archived. Documents are
// immutable except for status.
func (db *DB) SetStatus(id, status string) error {
	if status != models.DocumentActive && status != models.DocumentArchived {
		return fmt.Errorf("catalog: invalid status %q", status)
	}
	res, err := db.conn.Exec(`UPDATE documents SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("catalog: set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document; chunks cascade via the foreign key.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteByDocument(tx, id)
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// Chunks returns every chunk of a document in page order.
func (db *DB) Chunks(documentID string) ([]models.Chunk, error) {
	rows, err := db.conn.Query(`
		SELECT id, document_id, standard, section, paragraph, page_from, page_to, text, checksum, vector_ref
		FROM chunks WHERE document_id = ?
		ORDER BY page_from, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("catalog: chunks: %w", err)
	}
	return scanChunks(rows)
}

// ActiveChunks returns every chunk belonging to an active document.
// Archived documents are excluded from retrieval.
func (db *DB) ActiveChunks() ([]models.Chunk, error) {
	rows, err := db.conn.Query(`
		SELECT c.id, c.document_id, c.standard, c.section, c.paragraph, c.page_from, c.page_to, c.text, c.checksum, c.vector_ref
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: active chunks: %w", err)
	}
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]models.Chunk, error) {
	defer rows.Close()
	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Standard, &c.Section,
			&c.Paragraph, &c.PageFrom, &c.PageTo, &c.Text, &c.Checksum, &c.VectorRef); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChunkExists reports whether a chunk id resolves to a catalogued chunk.
// Citation validation uses this to guarantee referential citations.
func (db *DB) ChunkExists(id string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM chunks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: chunk exists: %w", err)
	}
	return true, nil
}

// documentSummariesByIDs loads summaries for a set of document ids,
// preserving the given order.
func (db *DB) documentSummariesByIDs(ids []string) ([]models.DocumentSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.conn.Query(`
		SELECT id, title, standard, tags, status, uploaded_at
		FROM documents WHERE id IN (`+placeholders+`) AND status = 'active'
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: documents by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.DocumentSummary, len(ids))
	for rows.Next() {
		var s models.DocumentSummary
		var tagsJSON string
		if err := rows.Scan(&s.ID, &s.Title, &s.Standard, &tagsJSON, &s.Status, &s.UploadedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &s.Tags)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []models.DocumentSummary
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
