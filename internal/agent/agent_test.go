package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harwell/attest/internal/answer"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/checklist"
	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/policy"
	"github.com/harwell/attest/internal/testutil"
	"github.com/harwell/attest/internal/valuation"
)

func testAgent(t *testing.T, port generation.Port) (*Agent, *catalog.DB, func(context.Context) []models.AuditRecord) {
	t.Helper()
	db := testutil.TestCatalog(t)
	trail := testutil.TestTrail(t)

	retriever := evidence.NewRetriever(evidence.NewCatalogStore(db, nil), 0.2, time.Second, nil)
	synth := answer.NewSynthesizer(retriever, port, nil)
	guard := policy.NewGuard(policy.DefaultConfig())
	analyzer := checklist.NewAnalyzer(db, port, checklist.DefaultConfig(), 0.2, time.Second, 2, nil)
	val := valuation.NewClient("", time.Second)

	ag := New(synth, guard, analyzer, db, val, trail, nil, nil)
	records := func(ctx context.Context) []models.AuditRecord {
		t.Helper()
		recs, err := trail.Recent(ctx, 50)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		return recs
	}
	return ag, db, records
}

func confidentPort() generation.Port {
	return &generation.MockPort{Fixed: &generation.Result{
		Text:       "Hedge accounting requires formal designation and documentation at inception.",
		Confidence: 0.9,
		Citations:  []generation.Citation{{Standard: "IFRS 9", Paragraph: "6.4.1", ChunkID: "doc-1-chunk-a"}},
	}}
}

func TestAskQuestionIsAnsweredAndAudited(t *testing.T) {
	ag, db, records := testAgent(t, confidentPort())
	testutil.Document(t, db, "doc-1", "Hedge guidance", "IFRS 9",
		"hedge accounting requires formal designation and documentation of the hedging relationship")

	resp, err := ag.Handle(context.Background(), Request{
		User:  "alice",
		Query: "what is hedge accounting designation?",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Intent != IntentAskQuestion {
		t.Errorf("intent = %q", resp.Intent)
	}
	if resp.Answer.Status != models.StatusOK {
		t.Fatalf("status = %q (text: %s)", resp.Answer.Status, resp.Answer.Text)
	}
	if len(resp.Answer.Citations) == 0 {
		t.Error("answer has no citations")
	}
	if resp.InteractionID == 0 {
		t.Error("interaction id not assigned")
	}

	recs := records(context.Background())
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.User != "alice" || rec.Intent != IntentAskQuestion || rec.Status != models.StatusOK {
		t.Errorf("audit record = %+v", rec)
	}
	if len(rec.Citations) == 0 {
		t.Error("audit record carries no citations")
	}
}

func TestComputationRequestIsRefused(t *testing.T) {
	ag, _, records := testAgent(t, confidentPort())

	resp, err := ag.Handle(context.Background(), Request{User: "bob", Query: "calculate the barrier option payoff"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Fatalf("status = %q, want ABSTAIN", resp.Answer.Status)
	}
	if !strings.Contains(resp.Answer.Text, "does not perform") {
		t.Errorf("refusal text = %q", resp.Answer.Text)
	}

	// Refusals are audited too.
	recs := records(context.Background())
	if len(recs) != 1 || recs[0].Status != models.StatusAbstain {
		t.Errorf("refusal not audited: %+v", recs)
	}
}

func TestUnknownIntentGivesGuidance(t *testing.T) {
	ag, _, _ := testAgent(t, confidentPort())

	resp, err := ag.Handle(context.Background(), Request{Query: "blargh nonsense"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Intent != IntentUnknown {
		t.Errorf("intent = %q", resp.Intent)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Errorf("status = %q, want ABSTAIN", resp.Answer.Status)
	}
	if !strings.Contains(resp.Answer.Text, "Supported requests") {
		t.Errorf("guidance missing: %q", resp.Answer.Text)
	}
}

func TestEmptyCorpusAbstains(t *testing.T) {
	ag, _, _ := testAgent(t, confidentPort())

	resp, err := ag.Ask(context.Background(), "alice", "what is hedge accounting?", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Errorf("status = %q, want ABSTAIN on empty corpus", resp.Answer.Status)
	}
}

func TestPolicyViolationForcesAbstain(t *testing.T) {
	port := &generation.MockPort{Fixed: &generation.Result{
		Text:       "This treatment is guaranteed to satisfy the auditor.",
		Confidence: 0.9,
		Citations:  []generation.Citation{{Standard: "IFRS 9", Paragraph: "6.4.1", ChunkID: "doc-1-chunk-a"}},
	}}
	ag, db, records := testAgent(t, port)
	testutil.Document(t, db, "doc-1", "Hedge guidance", "IFRS 9",
		"hedge accounting requires formal designation and documentation")

	resp, err := ag.Ask(context.Background(), "alice", "what is hedge accounting designation?", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Fatalf("status = %q, want ABSTAIN", resp.Answer.Status)
	}
	if !strings.Contains(resp.Answer.Text, "Policy violations detected") {
		t.Errorf("text = %q", resp.Answer.Text)
	}

	// The audit record holds the enforced answer, not the draft.
	recs := records(context.Background())
	if len(recs) != 1 || !strings.Contains(recs[0].Response, "Policy violations detected") {
		t.Errorf("audit record holds pre-enforcement draft: %+v", recs)
	}
}

func TestSearchDocuments(t *testing.T) {
	ag, db, _ := testAgent(t, confidentPort())
	testutil.Document(t, db, "doc-1", "Hedge guidance", "IFRS 9",
		"hedge accounting requires formal designation")
	testutil.Document(t, db, "doc-2", "Leases", "IFRS 16",
		"right of use asset measurement")

	resp, err := ag.Handle(context.Background(), Request{Query: "find documents about hedge"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Intent != IntentSearchDocuments {
		t.Fatalf("intent = %q", resp.Intent)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].ID != "doc-1" {
		t.Errorf("documents = %+v", resp.Documents)
	}
}

func TestRunStatusWithoutServiceAbstains(t *testing.T) {
	ag, _, _ := testAgent(t, confidentPort())

	resp, err := ag.Handle(context.Background(), Request{
		Query: "what is the status of the overnight run",
		RunID: "run-42",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Intent != IntentGetStatus {
		t.Fatalf("intent = %q", resp.Intent)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Errorf("status = %q, want ABSTAIN when reporting service is absent", resp.Answer.Status)
	}
}

func TestCancelledRequestIsNotAudited(t *testing.T) {
	ag, _, records := testAgent(t, confidentPort())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ag.Ask(ctx, "alice", "what is hedge accounting?", ""); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if recs := records(context.Background()); len(recs) != 0 {
		t.Errorf("cancelled request was audited: %+v", recs)
	}
}

func TestAnalyzeRecordsDocumentReference(t *testing.T) {
	ag, db, records := testAgent(t, confidentPort())
	testutil.Document(t, db, "doc-9", "Disclosures", "IFRS 9",
		"classification of financial instruments at amortised cost",
		"impairment follows the expected credit loss model")

	resp, err := ag.Analyze(context.Background(), "carol", "doc-9")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Feedback == nil {
		t.Fatal("no feedback in response")
	}
	if len(resp.Feedback.Items) == 0 {
		t.Error("feedback has no items")
	}

	recs := records(context.Background())
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	if len(recs[0].DocumentIDs) != 1 || recs[0].DocumentIDs[0] != "doc-9" {
		t.Errorf("document reference missing from audit record: %+v", recs[0])
	}
}
