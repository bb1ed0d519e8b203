package mcpserver

// UsageGuidance tells LLM consumers what these tools will and will not
// do, so clients stop retrying requests the agent refuses on principle.
const UsageGuidance = `# Attest Tool Usage

Attest answers questions about regulated accounting standards from a
catalogued guidance corpus. It is a reporting and explanation surface,
not a computation engine.

## What the tools do

- **ask_question** — answers compliance questions with citations into
  the corpus. Every answer carries a status:
  - ` + "`OK`" + ` — the corpus supports the answer; citations reference the
    exact standard and paragraph used.
  - ` + "`ABSTAIN`" + ` — the corpus does not support an answer, or the answer
    failed a policy check. The text explains why.
- **analyze_document** — runs the compliance checklist over one
  catalogued document and returns per-item results plus an aggregate
  verdict (` + "`OK`" + `, ` + "`NEEDS_REVIEW`" + `, or ` + "`ABSTAIN`" + `).
- **search_documents** — finds catalogued documents by content.

## What the tools refuse

- Pricing, valuation, or any numeric computation. Requests containing
  computation language (price, calculate, value, estimate, ...) are
  declined before routing.
- Inventing or generating content that is not in the corpus.
- Tax structuring, legal representation, or investment advice.

## Rules for consumers

1. Treat ` + "`ABSTAIN`" + ` as final. Do not rephrase a refused request to
   route around the refusal.
2. Relay citations verbatim; they are the user's audit trail into the
   underlying guidance.
3. Every call is recorded in an append-only audit trail. A tool error
   stating the audit trail is unavailable means the decision was NOT
   delivered; retry later rather than assuming an answer.
`
