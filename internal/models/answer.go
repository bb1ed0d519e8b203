package models

// Answer statuses. There is no partial success: an answer is either
// fully supported by evidence or it is an abstention.
const (
	StatusOK          = "OK"
	StatusAbstain     = "ABSTAIN"
	StatusNeedsReview = "NEEDS_REVIEW"
)

// EvidenceMatch is one scored retrieval hit.
type EvidenceMatch struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Standard   string  `json:"standard,omitempty"`
	Section    string  `json:"section,omitempty"`
	Paragraph  string  `json:"paragraph,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Citation points a claim back at the catalogued guidance it came from.
type Citation struct {
	Standard   string `json:"standard"`
	Paragraph  string `json:"paragraph"`
	Section    string `json:"section,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkID    string `json:"chunk_id,omitempty"`
}

// Answer is a policy-checked response to a question.
type Answer struct {
	Status     string     `json:"status"`
	Text       string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
}

// AbstainAnswer builds the canonical abstention for a reason.
func AbstainAnswer(reason string) Answer {
	return Answer{
		Status:     StatusAbstain,
		Text:       "Cannot answer: " + reason,
		Citations:  []Citation{},
		Confidence: 0.0,
	}
}
