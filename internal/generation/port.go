// Package generation defines the pluggable text-generation port and its
// adapters. The port is an untrusted black box: its output is parsed and
// validated defensively, and any failure (timeout, transport, malformed
// response) is reported as an error for the synthesizer's fallback path.
package generation

import (
	"context"

	"github.com/harwell/attest/internal/models"
)

// PromptContext carries the question and the evidence the generated
// answer is allowed to draw on. Generation must never introduce content
// that is not present in Evidence.
type PromptContext struct {
	Question string
	Standard string
	Evidence []models.EvidenceMatch
}

// Citation is a citation-like structure as reported by the port, before
// referential validation.
type Citation struct {
	Standard   string `json:"standard"`
	Paragraph  string `json:"paragraph"`
	Section    string `json:"section,omitempty"`
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
}

// Result is the parsed output of one generation call.
type Result struct {
	Text       string     `json:"answer"`
	Confidence float64    `json:"confidence"`
	Citations  []Citation `json:"citations"`
}

// Port produces an answer draft for a prompt context.
type Port interface {
	Generate(ctx context.Context, pc PromptContext) (*Result, error)
}
