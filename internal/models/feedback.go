package models

import "time"

// ChecklistItem is one configurable compliance requirement.
type ChecklistItem struct {
	ID          string `yaml:"id" json:"id"`
	Key         string `yaml:"key" json:"key"`
	Description string `yaml:"description" json:"description"`
	Critical    bool   `yaml:"critical" json:"critical"`
	Category    string `yaml:"category" json:"category,omitempty"`
}

// ChecklistResult is the evaluated outcome of one item for one document.
type ChecklistResult struct {
	ItemID    string     `json:"item_id"`
	Key       string     `json:"key"`
	Met       bool       `json:"met"`
	Notes     string     `json:"notes,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// Feedback is the aggregate checklist verdict for one document.
type Feedback struct {
	Status     string            `json:"status"`
	Summary    string            `json:"summary"`
	Items      []ChecklistResult `json:"items"`
	Confidence float64           `json:"confidence"`
}

// AbstainFeedback builds the canonical analysis abstention for a reason.
func AbstainFeedback(reason string) Feedback {
	return Feedback{
		Status:     StatusAbstain,
		Summary:    "Cannot analyze document: " + reason,
		Items:      []ChecklistResult{},
		Confidence: 0.0,
	}
}

// AuditRecord is one append-only entry in the decision trail.
type AuditRecord struct {
	ID          int64      `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	User        string     `json:"user,omitempty"`
	Question    string     `json:"question"`
	Intent      string     `json:"intent"`
	Response    string     `json:"response"`
	Status      string     `json:"status"`
	Confidence  float64    `json:"confidence"`
	ToolUsed    string     `json:"tool_used,omitempty"`
	DocumentIDs []string   `json:"document_ids,omitempty"`
	Citations   []Citation `json:"citations,omitempty"`
}
