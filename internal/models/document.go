// Package models holds the domain types shared across the pipeline.
package models

import "time"

// Document lifecycle statuses. Archived documents stay catalogued and
// auditable but contribute no retrieval evidence.
const (
	DocumentActive   = "active"
	DocumentArchived = "archived"
)

// Document is a catalogued corpus document. Content is immutable after
// ingestion; only the status may change.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Standard   string    `json:"standard,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Checksum   string    `json:"checksum"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	Size       int64     `json:"size"`
	Status     string    `json:"status"`
}

// DocumentSummary is the lightweight listing view of a document.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Standard   string    `json:"standard,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Chunk is one retrievable slice of a document, carrying the citation
// metadata retrieval surfaces with it.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Standard   string `json:"standard,omitempty"`
	Section    string `json:"section,omitempty"`
	Paragraph  string `json:"paragraph,omitempty"`
	PageFrom   int    `json:"page_from"`
	PageTo     int    `json:"page_to"`
	Text       string `json:"text"`
	Checksum   string `json:"checksum,omitempty"`
	VectorRef  string `json:"vector_ref,omitempty"`
}
