// Package answer synthesizes grounded, citation-backed answers from
// retrieved evidence, abstaining whenever the evidence is insufficient.
package answer

import (
	"strings"

	"github.com/harwell/attest/internal/models"
)

// MaxCitations caps how many citations one answer carries. The same top
// matches back both the citations and any generated or digested text, so
// every citation refers to evidence the answer actually drew on.
const MaxCitations = 3

// BuildCitations converts the strongest matches into citations. Matches
// missing standard or paragraph metadata are cited with placeholders
// rather than dropped, so the evidence trail stays complete.
func BuildCitations(matches []models.EvidenceMatch, limit int) []models.Citation {
	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}
	out := make([]models.Citation, 0, limit)
	for _, m := range matches[:limit] {
		standard := m.Standard
		if strings.TrimSpace(standard) == "" {
			standard = "unspecified"
		}
		paragraph := m.Paragraph
		if strings.TrimSpace(paragraph) == "" {
			paragraph = "n/a"
		}
		out = append(out, models.Citation{
			Standard:   standard,
			Paragraph:  paragraph,
			Section:    m.Section,
			DocumentID: m.DocumentID,
			ChunkID:    m.ChunkID,
		})
	}
	return out
}

// digest builds a deterministic answer directly from evidence text. It
// is the fallback when generation fails or returns garbage: quote the
// strongest excerpts verbatim with their references.
func digest(matches []models.EvidenceMatch) string {
	var b strings.Builder
	b.WriteString("Based on the retrieved guidance:")
	for _, m := range matches {
		b.WriteString("\n- ")
		b.WriteString(strings.TrimSpace(m.Text))
		if m.Standard != "" || m.Paragraph != "" {
			b.WriteString(" (")
			b.WriteString(strings.TrimSpace(m.Standard + " " + m.Paragraph))
			b.WriteString(")")
		}
	}
	return b.String()
}
