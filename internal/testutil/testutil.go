// Package testutil provides shared test helpers for setting up catalogs,
// audit trails and corpus directories.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/harwell/attest/internal/audit"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/storage"
)

// TestCatalog creates a temporary catalog database that is automatically
// cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "attest-catalog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTrail creates a temporary audit trail that is automatically
// cleaned up.
func TestTrail(t *testing.T) *audit.Trail {
	t.Helper()
	dbFile, err := os.CreateTemp("", "attest-audit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	trail, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { trail.Close() })
	return trail
}

// TestCorpus creates a temporary corpus directory with a storage.Provider.
func TestCorpus(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Document inserts a document with the given chunk texts into the
// catalog and returns it.
func Document(t *testing.T, db *catalog.DB, id, title, standard string, texts ...string) models.Document {
	t.Helper()
	doc := models.Document{
		ID:         id,
		Title:      title,
		Standard:   standard,
		Tags:       []string{},
		Checksum:   "checksum-" + id,
		UploadedBy: "test",
		UploadedAt: time.Now().UTC(),
		Size:       int64(len(texts)),
		Status:     models.DocumentActive,
	}
	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			ID:         doc.ID + "-chunk-" + string(rune('a'+i)),
			DocumentID: doc.ID,
			Standard:   standard,
			Section:    "test",
			Paragraph:  "1.1",
			PageFrom:   1,
			PageTo:     1,
			Text:       text,
		})
	}
	if err := db.InsertDocument(doc, chunks); err != nil {
		t.Fatalf("insert document %s: %v", id, err)
	}
	return doc
}
