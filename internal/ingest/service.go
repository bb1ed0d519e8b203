package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/checksum"
	"github.com/harwell/attest/internal/events"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/storage"
)

// Request carries one document upload.
type Request struct {
	Title      string
	Standard   string
	Tags       []string
	UploadedBy string
	Content    []byte
}

// Service ingests documents: checksum dedup, chunking, corpus write and
// catalog insert.
type Service struct {
	catalog catalog.Store
	corpus  storage.Provider
	broker  *events.Broker
	logger  *slog.Logger
}

// NewService wires the ingestion pipeline. broker may be nil.
func NewService(cat catalog.Store, corpus storage.Provider, broker *events.Broker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: cat, corpus: corpus, broker: broker, logger: logger}
}

// Ingest stores a document and its chunks. A re-upload of identical
// content returns the already-catalogued document with created=false
// rather than an error.
func (s *Service) Ingest(ctx context.Context, req Request) (*models.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, false, fmt.Errorf("ingest: title is required")
	}
	if len(req.Content) == 0 {
		return nil, false, fmt.Errorf("ingest: content is empty")
	}

	sum := checksum.Sum(req.Content)
	if existing, err := s.catalog.DocumentByChecksum(sum); err == nil {
		s.logger.Info("ingest: duplicate content, returning existing document",
			slog.String("document_id", existing.ID),
			slog.String("checksum", sum))
		return existing, false, nil
	}

	doc := models.Document{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(req.Title),
		Standard:   strings.TrimSpace(req.Standard),
		Tags:       req.Tags,
		Checksum:   sum,
		UploadedBy: req.UploadedBy,
		UploadedAt: time.Now().UTC(),
		Size:       int64(len(req.Content)),
		Status:     models.DocumentActive,
	}

	spans := Split(string(req.Content))
	chunks := make([]models.Chunk, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Standard:   doc.Standard,
			Section:    sp.Section,
			Paragraph:  sp.Paragraph,
			PageFrom:   sp.PageFrom,
			PageTo:     sp.PageTo,
			Text:       sp.Text,
			Checksum:   checksum.SumString(sp.Text),
		})
	}

	// Corpus write first: a catalog row pointing at a missing file is
	// worse than an orphan file, which the next ingest can overwrite.
	if err := s.corpus.Write(corpusPath(doc.ID), req.Content); err != nil {
		return nil, false, fmt.Errorf("ingest: write corpus: %w", err)
	}
	if err := s.catalog.InsertDocument(doc, chunks); err != nil {
		if delErr := s.corpus.Delete(corpusPath(doc.ID)); delErr != nil {
			s.logger.Warn("ingest: orphan cleanup failed", slog.String("error", delErr.Error()))
		}
		return nil, false, err
	}

	s.logger.Info("ingest: document catalogued",
		slog.String("document_id", doc.ID),
		slog.String("title", doc.Title),
		slog.Int("chunks", len(chunks)))
	if s.broker != nil {
		s.broker.PublishDocument("ingested", doc.ID)
	}
	return &doc, true, nil
}

// Archive marks a document archived; its chunks stop contributing
// evidence but the document and audit references remain.
func (s *Service) Archive(documentID string) error {
	if err := s.catalog.SetStatus(documentID, models.DocumentArchived); err != nil {
		return err
	}
	if s.broker != nil {
		s.broker.PublishDocument("archived", documentID)
	}
	return nil
}

// Delete removes a document from catalog and corpus. Audit records
// referencing it are untouched; the trail is append-only.
func (s *Service) Delete(documentID string) error {
	if err := s.catalog.DeleteDocument(documentID); err != nil {
		return err
	}
	if err := s.corpus.Delete(corpusPath(documentID)); err != nil {
		s.logger.Warn("ingest: corpus delete failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
	}
	if s.broker != nil {
		s.broker.PublishDocument("deleted", documentID)
	}
	return nil
}

func corpusPath(documentID string) string {
	return documentID + ".txt"
}
