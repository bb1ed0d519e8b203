package catalog

import "github.com/harwell/attest/internal/models"

// Store defines the catalog operations consumed by the rest of the
// application. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type Store interface {
	InsertDocument(doc models.Document, chunks []models.Chunk) error
	Document(id string) (*models.Document, error)
	DocumentByChecksum(checksum string) (*models.Document, error)
	ListDocuments(limit, offset int, standard string) ([]models.DocumentSummary, int, error)
	SetStatus(id, status string) error
	DeleteDocument(id string) error
	Chunks(documentID string) ([]models.Chunk, error)
	ActiveChunks() ([]models.Chunk, error)
	ChunkExists(id string) (bool, error)
	SearchDocuments(term string, limit int) ([]models.DocumentSummary, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
