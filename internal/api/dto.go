package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/harwell/attest/internal/models"
)

// ChatRequest is the request body for the conversational endpoint.
type ChatRequest struct {
	User       string `json:"user" example:"reviewer@example.com"`
	Query      string `json:"query" example:"What does IFRS 9 require for hedge documentation?" validate:"required"`
	DocumentID string `json:"document_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Standard   string `json:"standard,omitempty" example:"IFRS 9"`
}

// Validate implements request validation.
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required, validation.Length(1, 4000)),
	)
}

// AskRequest is the request body for direct question answering.
type AskRequest struct {
	User     string `json:"user"`
	Question string `json:"question" validate:"required"`
	Standard string `json:"standard,omitempty"`
}

// Validate implements request validation.
func (r AskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Question, validation.Required, validation.Length(1, 4000)),
	)
}

// IngestRequest is the request body for document ingestion.
type IngestRequest struct {
	Title      string   `json:"title" validate:"required"`
	Standard   string   `json:"standard,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	UploadedBy string   `json:"uploaded_by,omitempty"`
	Content    string   `json:"content" validate:"required"`
}

// Validate implements request validation.
func (r IngestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Content, validation.Required),
	)
}

// PolicyCheckRequest carries a candidate answer for a dry-run policy
// evaluation.
type PolicyCheckRequest struct {
	Answer models.Answer `json:"answer"`
}

// Validate implements request validation.
func (r PolicyCheckRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Answer, validation.By(func(any) error {
			return validation.Validate(r.Answer.Text, validation.Required)
		})),
	)
}

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentSummary `json:"documents" validate:"required"`
	Total     int                      `json:"total" example:"42" validate:"required"`
}

// IngestResponse is returned after ingestion.
type IngestResponse struct {
	Document models.Document `json:"document" validate:"required"`
	Created  bool            `json:"created" validate:"required"`
}

// AuditListResponse wraps recent audit records.
type AuditListResponse struct {
	Records []models.AuditRecord `json:"records" validate:"required"`
}
