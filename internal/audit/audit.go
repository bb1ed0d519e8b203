// Package audit persists one append-only record per agent decision.
// The trail is the compliance system of record: records are written in a
// single transaction after policy enforcement, and there is no API to
// update or delete them.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harwell/attest/internal/apperr"
	"github.com/harwell/attest/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS interactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ts          TEXT NOT NULL,
    user        TEXT NOT NULL,
    question    TEXT NOT NULL,
    intent      TEXT NOT NULL,
    response    TEXT NOT NULL,
    status      TEXT NOT NULL,
    confidence  REAL NOT NULL,
    tool_used   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS interaction_citations (
    interaction_id INTEGER NOT NULL REFERENCES interactions(id),
    standard       TEXT NOT NULL,
    paragraph      TEXT NOT NULL,
    section        TEXT NOT NULL DEFAULT '',
    document_id    TEXT NOT NULL DEFAULT '',
    chunk_id       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS interaction_documents (
    interaction_id INTEGER NOT NULL REFERENCES interactions(id),
    document_id    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_ts ON interactions(ts);
CREATE INDEX IF NOT EXISTS idx_citations_interaction ON interaction_citations(interaction_id);
CREATE INDEX IF NOT EXISTS idx_documents_interaction ON interaction_documents(interaction_id);
`

// Trail is the append-only audit store.
type Trail struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Trail, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: schema: %w", err)
	}
	return &Trail{db: db}, nil
}

// Close closes the underlying database.
func (t *Trail) Close() error {
	return t.db.Close()
}

// Record appends one interaction in a single transaction and returns its
// id. Failure to persist is the one error the decision pipeline treats
// as fatal, so it is wrapped in ErrAuditUnavailable.
func (t *Trail) Record(ctx context.Context, rec models.AuditRecord) (int64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", apperr.ErrAuditUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (ts, user, question, intent, response, status, confidence, tool_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Format(time.RFC3339Nano), rec.User, rec.Question, rec.Intent,
		rec.Response, rec.Status, rec.Confidence, rec.ToolUsed)
	if err != nil {
		return 0, fmt.Errorf("%w: insert interaction: %v", apperr.ErrAuditUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", apperr.ErrAuditUnavailable, err)
	}

	for _, c := range rec.Citations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interaction_citations (interaction_id, standard, paragraph, section, document_id, chunk_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, c.Standard, c.Paragraph, c.Section, c.DocumentID, c.ChunkID); err != nil {
			return 0, fmt.Errorf("%w: insert citation: %v", apperr.ErrAuditUnavailable, err)
		}
	}
	for _, docID := range rec.DocumentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interaction_documents (interaction_id, document_id) VALUES (?, ?)`,
			id, docID); err != nil {
			return 0, fmt.Errorf("%w: insert document ref: %v", apperr.ErrAuditUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", apperr.ErrAuditUnavailable, err)
	}
	return id, nil
}

// Recent returns the latest records, newest first, with their citations
// and document references attached.
func (t *Trail) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, ts, user, question, intent, response, status, confidence, tool_used
		 FROM interactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.User, &rec.Question, &rec.Intent,
			&rec.Response, &rec.Status, &rec.Confidence, &rec.ToolUsed); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}

	for i := range out {
		if err := t.attachDetails(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Trail) attachDetails(ctx context.Context, rec *models.AuditRecord) error {
	crows, err := t.db.QueryContext(ctx,
		`SELECT standard, paragraph, section, document_id, chunk_id
		 FROM interaction_citations WHERE interaction_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("audit: query citations: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c models.Citation
		if err := crows.Scan(&c.Standard, &c.Paragraph, &c.Section, &c.DocumentID, &c.ChunkID); err != nil {
			return fmt.Errorf("audit: scan citation: %w", err)
		}
		rec.Citations = append(rec.Citations, c)
	}
	if err := crows.Err(); err != nil {
		return fmt.Errorf("audit: citation rows: %w", err)
	}

	drows, err := t.db.QueryContext(ctx,
		`SELECT document_id FROM interaction_documents WHERE interaction_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("audit: query documents: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var docID string
		if err := drows.Scan(&docID); err != nil {
			return fmt.Errorf("audit: scan document: %w", err)
		}
		rec.DocumentIDs = append(rec.DocumentIDs, docID)
	}
	return drows.Err()
}
