package evidence

import (
	"context"
	"fmt"
	"sort"

	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/models"
)

// Store is any backend that can return scored chunks for a query. The
// reference implementation scores flat catalogued text; a vector index
// is a drop-in replacement as long as it returns the same shape.
type Store interface {
	Search(ctx context.Context, query string, topK int) ([]models.EvidenceMatch, error)
}

// CatalogStore scores active catalogued chunks with a pluggable ScoreFunc.
type CatalogStore struct {
	catalog catalog.Store
	score   ScoreFunc
}

// NewCatalogStore creates a store over the document catalog. A nil score
// function selects the reference Relevance scorer.
func NewCatalogStore(cat catalog.Store, score ScoreFunc) *CatalogStore {
	if score == nil {
		score = Relevance
	}
	return &CatalogStore{catalog: cat, score: score}
}

// Search scores every active chunk against the query and returns the
// topK matches sorted descending by score. Zero-score chunks are never
// returned.
func (s *CatalogStore) Search(ctx context.Context, query string, topK int) ([]models.EvidenceMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := s.catalog.ActiveChunks()
	if err != nil {
		return nil, fmt.Errorf("evidence: load chunks: %w", err)
	}
	return scoreChunks(chunks, query, topK, s.score), nil
}

// SliceStore scores a fixed set of chunks, typically one document's, so
// callers can scope retrieval without touching the catalog.
type SliceStore struct {
	chunks []models.Chunk
	score  ScoreFunc
}

// NewSliceStore creates a store over the given chunks. A nil score
// function selects the reference Relevance scorer.
func NewSliceStore(chunks []models.Chunk, score ScoreFunc) *SliceStore {
	if score == nil {
		score = Relevance
	}
	return &SliceStore{chunks: chunks, score: score}
}

// Search scores the fixed chunk set against the query.
func (s *SliceStore) Search(ctx context.Context, query string, topK int) ([]models.EvidenceMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scoreChunks(s.chunks, query, topK, s.score), nil
}

func scoreChunks(chunks []models.Chunk, query string, topK int, score ScoreFunc) []models.EvidenceMatch {
	var matches []models.EvidenceMatch
	for _, c := range chunks {
		sc := score(query, c.Text)
		if sc <= 0 {
			continue
		}
		matches = append(matches, models.EvidenceMatch{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Standard:   c.Standard,
			Section:    c.Section,
			Paragraph:  c.Paragraph,
			Text:       c.Text,
			Score:      sc,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
