package catalog

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/harwell/attest/internal/apperr"
	"github.com/harwell/attest/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "attest-catalog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func doc(id, checksum, standard string) models.Document {
	return models.Document{
		ID:         id,
		Title:      "Title " + id,
		Standard:   standard,
		Tags:       []string{"t1"},
		Checksum:   checksum,
		UploadedBy: "test",
		UploadedAt: time.Now().UTC(),
		Size:       100,
		Status:     models.DocumentActive,
	}
}

func chunk(id, docID, text string) models.Chunk {
	return models.Chunk{ID: id, DocumentID: docID, Standard: "IFRS 9", Section: "s", Paragraph: "1.1", PageFrom: 1, PageTo: 1, Text: text}
}

func TestInsertAndGetDocument(t *testing.T) {
	db := testDB(t)
	d := doc("d1", "cs1", "IFRS 9")
	if err := db.InsertDocument(d, []models.Chunk{chunk("c1", "d1", "hedge accounting")}); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	got, err := db.Document("d1")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got.Title != d.Title || got.Checksum != d.Checksum || got.Status != models.DocumentActive {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "t1" {
		t.Errorf("tags round-trip failed: %v", got.Tags)
	}

	if _, err := db.Document("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing document err = %v, want ErrNotFound", err)
	}
}

func TestChecksumDedup(t *testing.T) {
	db := testDB(t)
	if err := db.InsertDocument(doc("d1", "same", ""), nil); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.InsertDocument(doc("d2", "same", ""), nil)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate checksum err = %v, want ErrAlreadyExists", err)
	}

	got, err := db.DocumentByChecksum("same")
	if err != nil {
		t.Fatalf("DocumentByChecksum: %v", err)
	}
	if got.ID != "d1" {
		t.Errorf("checksum resolved to %q", got.ID)
	}
}

func TestListDocumentsFilterAndPaging(t *testing.T) {
	db := testDB(t)
	for i, std := range []string{"IFRS 9", "IFRS 9", "IFRS 16"} {
		d := doc(string(rune('a'+i)), "cs"+string(rune('a'+i)), std)
		d.UploadedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := db.InsertDocument(d, nil); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	all, total, err := db.ListDocuments(0, 0, "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, len = %d", total, len(all))
	}
	// Newest first.
	if all[0].ID != "c" {
		t.Errorf("first = %q, want newest", all[0].ID)
	}

	filtered, total, err := db.ListDocuments(0, 0, "IFRS 9")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 2 || len(filtered) != 2 {
		t.Errorf("filtered total = %d, len = %d", total, len(filtered))
	}

	page, total, err := db.ListDocuments(1, 1, "")
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("paged total = %d, len = %d", total, len(page))
	}
}

func TestArchiveExcludesFromActiveChunks(t *testing.T) {
	db := testDB(t)
	if err := db.InsertDocument(doc("d1", "cs1", ""), []models.Chunk{chunk("c1", "d1", "text one")}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertDocument(doc("d2", "cs2", ""), []models.Chunk{chunk("c2", "d2", "text two")}); err != nil {
		t.Fatal(err)
	}

	if err := db.SetStatus("d1", models.DocumentArchived); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	active, err := db.ActiveChunks()
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if len(active) != 1 || active[0].DocumentID != "d2" {
		t.Errorf("active chunks = %+v", active)
	}

	// Archived chunks are still reachable directly.
	chunks, err := db.Chunks("d1")
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("archived document chunks = %d, want 1", len(chunks))
	}

	if err := db.SetStatus("d1", "bogus"); err == nil {
		t.Error("invalid status accepted")
	}
	if err := db.SetStatus("missing", models.DocumentArchived); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing doc err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascadesChunks(t *testing.T) {
	db := testDB(t)
	if err := db.InsertDocument(doc("d1", "cs1", ""), []models.Chunk{
		chunk("c1", "d1", "one"), chunk("c2", "d1", "two"),
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteDocument("d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := db.Document("d1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("document survived delete")
	}
	for _, id := range []string{"c1", "c2"} {
		ok, err := db.ChunkExists(id)
		if err != nil {
			t.Fatalf("ChunkExists: %v", err)
		}
		if ok {
			t.Errorf("chunk %s survived cascade", id)
		}
	}

	if err := db.DeleteDocument("d1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSearchDocuments(t *testing.T) {
	db := testDB(t)
	if err := db.InsertDocument(doc("d1", "cs1", ""), []models.Chunk{
		chunk("c1", "d1", "hedge accounting designation"),
		chunk("c2", "d1", "hedge effectiveness testing"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertDocument(doc("d2", "cs2", ""), []models.Chunk{
		chunk("c3", "d2", "lease measurement"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := db.SearchDocuments("hedge", 10)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d1" {
		t.Errorf("results = %+v", got)
	}

	// Archived documents drop out of search results.
	if err := db.SetStatus("d1", models.DocumentArchived); err != nil {
		t.Fatal(err)
	}
	got, err = db.SearchDocuments("hedge", 10)
	if err != nil {
		t.Fatalf("search after archive: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("archived document still searchable: %+v", got)
	}
}
