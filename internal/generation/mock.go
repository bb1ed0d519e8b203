package generation

import (
	"context"
	"fmt"
	"strings"
)

// MockPort is a deterministic port for development and tests. It echoes
// the strongest evidence back as the answer and cites what it used, so
// the full pipeline can run without a live endpoint.
type MockPort struct {
	// Fixed, when set, is returned for every call.
	Fixed *Result
	// Err, when set, is returned for every call.
	Err error
}

// Generate returns the configured fixture, or a digest of the evidence.
func (m *MockPort) Generate(ctx context.Context, pc PromptContext) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Fixed != nil {
		return m.Fixed, nil
	}
	if len(pc.Evidence) == 0 {
		return &Result{Text: "The available guidance does not address this question.", Confidence: 0.0}, nil
	}

	var b strings.Builder
	var citations []Citation
	var sum float64
	for i, ev := range pc.Evidence {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s [%s %s]", strings.TrimSpace(ev.Text), ev.Standard, ev.Paragraph)
		citations = append(citations, Citation{
			Standard:   ev.Standard,
			Paragraph:  ev.Paragraph,
			Section:    ev.Section,
			DocumentID: ev.DocumentID,
			ChunkID:    ev.ChunkID,
		})
		sum += ev.Score
	}
	return &Result{
		Text:       b.String(),
		Confidence: sum / float64(len(pc.Evidence)),
		Citations:  citations,
	}, nil
}
