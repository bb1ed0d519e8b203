package generation

import (
	"fmt"
	"strings"
)

// systemPrompt pins the generation contract: answer only from the
// provided excerpts, cite every claim, and return machine-parseable
// JSON so the synthesizer can validate the draft.
const systemPrompt = `You are a compliance assistant for regulated accounting standards.

Rules you must never break:
- Answer ONLY from the numbered excerpts provided. Do not use outside knowledge.
- If the excerpts do not contain the answer, set "answer" to a statement that the question cannot be answered from the available guidance and "confidence" to 0.0.
- Never speculate, never invent paragraph references, never give valuation or pricing advice.
- Cite every claim by copying the standard, paragraph, document_id and chunk_id fields of the excerpt it came from.

Respond with a single JSON object and nothing else:
{"answer": "...", "confidence": 0.0, "citations": [{"standard": "...", "paragraph": "...", "section": "...", "document_id": "...", "chunk_id": "..."}]}`

// BuildPrompt renders the user message for a prompt context: the
// question followed by the numbered evidence excerpts with their
// citation metadata inline.
func BuildPrompt(pc PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", pc.Question)
	if pc.Standard != "" {
		fmt.Fprintf(&b, "Standard in scope: %s\n", pc.Standard)
	}
	b.WriteString("\nExcerpts:\n")
	for i, m := range pc.Evidence {
		fmt.Fprintf(&b, "[%d] standard=%s paragraph=%s section=%s document_id=%s chunk_id=%s\n%s\n\n",
			i+1, m.Standard, m.Paragraph, m.Section, m.DocumentID, m.ChunkID, m.Text)
	}
	return b.String()
}
