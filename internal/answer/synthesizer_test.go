package answer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/models"
)

type fixedStore struct {
	matches []models.EvidenceMatch
}

func (s *fixedStore) Search(context.Context, string, int) ([]models.EvidenceMatch, error) {
	return s.matches, nil
}

// countingPort wraps another port and counts calls.
type countingPort struct {
	inner generation.Port
	calls atomic.Int64
}

func (p *countingPort) Generate(ctx context.Context, pc generation.PromptContext) (*generation.Result, error) {
	p.calls.Add(1)
	return p.inner.Generate(ctx, pc)
}

func evidenceMatch(id string, score float64) models.EvidenceMatch {
	return models.EvidenceMatch{
		ChunkID:    id,
		DocumentID: "doc-1",
		Standard:   "IFRS 9",
		Paragraph:  "4.1." + id,
		Text:       "guidance text " + id,
		Score:      score,
	}
}

func newSynth(matches []models.EvidenceMatch, port generation.Port) *Synthesizer {
	retriever := evidence.NewRetriever(&fixedStore{matches: matches}, 0.2, time.Second, nil)
	return NewSynthesizer(retriever, port, nil)
}

func TestNoEvidenceAbstainsWithoutGeneration(t *testing.T) {
	port := &countingPort{inner: &generation.MockPort{}}
	s := newSynth(nil, port)

	ans := s.Answer(context.Background(), "what is hedge accounting?", "")
	if ans.Status != models.StatusAbstain {
		t.Fatalf("status = %q, want ABSTAIN", ans.Status)
	}
	if ans.Confidence != 0.0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
	if len(ans.Citations) != 0 {
		t.Errorf("citations = %d, want 0", len(ans.Citations))
	}
	if port.calls.Load() != 0 {
		t.Errorf("generation called %d times on empty evidence, want 0", port.calls.Load())
	}
}

func TestGeneratedAnswerCarriesCitations(t *testing.T) {
	port := &generation.MockPort{Fixed: &generation.Result{
		Text:       "Hedge accounting requires formal designation and documentation.",
		Confidence: 0.9,
		Citations:  []generation.Citation{{Standard: "IFRS 9", Paragraph: "4.1.a", ChunkID: "a"}},
	}}
	s := newSynth([]models.EvidenceMatch{
		evidenceMatch("a", 0.9),
		evidenceMatch("b", 0.8),
		evidenceMatch("c", 0.7),
		evidenceMatch("d", 0.6),
	}, port)

	ans := s.Answer(context.Background(), "what does hedge accounting require?", "")
	if ans.Status != models.StatusOK {
		t.Fatalf("status = %q, want OK (text: %s)", ans.Status, ans.Text)
	}
	if ans.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", ans.Confidence)
	}
	if len(ans.Citations) != MaxCitations {
		t.Errorf("citations = %d, want %d", len(ans.Citations), MaxCitations)
	}
	// Citations come from the strongest matches, in order.
	if ans.Citations[0].ChunkID != "a" || ans.Citations[1].ChunkID != "b" {
		t.Errorf("citations not from top matches: %+v", ans.Citations)
	}
}

func TestLowPortConfidenceForcesAbstain(t *testing.T) {
	port := &generation.MockPort{Fixed: &generation.Result{Text: "weak draft", Confidence: 0.4}}
	s := newSynth([]models.EvidenceMatch{evidenceMatch("a", 0.9)}, port)

	ans := s.Answer(context.Background(), "question", "")
	if ans.Status != models.StatusAbstain {
		t.Fatalf("status = %q, want ABSTAIN for low-confidence draft", ans.Status)
	}
	if ans.Confidence != 0.0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
}

func TestUncitedDraftForcesAbstain(t *testing.T) {
	// A fluent, confident draft that cites nothing is ungrounded and
	// must not pass, however strong the retrieved evidence was.
	port := &generation.MockPort{Fixed: &generation.Result{
		Text:       "An ungrounded but fluent answer about hedge accounting.",
		Confidence: 0.9,
	}}
	s := newSynth([]models.EvidenceMatch{
		evidenceMatch("a", 0.9),
		evidenceMatch("b", 0.85),
	}, port)

	ans := s.Answer(context.Background(), "what does hedge accounting require?", "")
	if ans.Status != models.StatusAbstain {
		t.Fatalf("status = %q, want ABSTAIN for a draft with no citations", ans.Status)
	}
	if len(ans.Citations) != 0 || ans.Confidence != 0.0 {
		t.Errorf("abstention not clean: %+v", ans)
	}
}

func TestGenerationFailureFallsBackToDigest(t *testing.T) {
	port := &generation.MockPort{Err: errors.New("endpoint down")}
	matches := []models.EvidenceMatch{evidenceMatch("a", 0.8), evidenceMatch("b", 0.6)}
	s := newSynth(matches, port)

	ans := s.Answer(context.Background(), "question", "")
	if ans.Status != models.StatusOK {
		t.Fatalf("status = %q, want OK digest", ans.Status)
	}
	if !strings.Contains(ans.Text, "guidance text a") {
		t.Errorf("digest missing evidence text: %q", ans.Text)
	}
	want := (0.8 + 0.6) / 2
	if ans.Confidence != want {
		t.Errorf("digest confidence = %f, want mean %f", ans.Confidence, want)
	}
	if len(ans.Citations) == 0 {
		t.Errorf("digest answer has no citations")
	}
}

func TestConfidenceClampedToOne(t *testing.T) {
	port := &generation.MockPort{Fixed: &generation.Result{
		Text:       "confident draft",
		Confidence: 0.99,
		Citations:  []generation.Citation{{Standard: "IFRS 9", Paragraph: "4.1.a", ChunkID: "a"}},
	}}
	s := newSynth([]models.EvidenceMatch{evidenceMatch("a", 0.9)}, port)

	ans := s.Answer(context.Background(), "question", "")
	if ans.Confidence > 1.0 {
		t.Errorf("confidence = %f, exceeds 1.0", ans.Confidence)
	}
}

func TestBuildCitationsPlaceholders(t *testing.T) {
	matches := []models.EvidenceMatch{
		{ChunkID: "c1", DocumentID: "d1", Standard: "", Paragraph: "", Score: 0.9},
	}
	cits := BuildCitations(matches, 3)
	if len(cits) != 1 {
		t.Fatalf("citations = %d, want 1", len(cits))
	}
	if cits[0].Standard == "" || cits[0].Paragraph == "" {
		t.Errorf("missing metadata should be placeholders, got %+v", cits[0])
	}
}

func TestBuildCitationsLimit(t *testing.T) {
	matches := []models.EvidenceMatch{
		evidenceMatch("a", 0.9), evidenceMatch("b", 0.8),
		evidenceMatch("c", 0.7), evidenceMatch("d", 0.6),
	}
	if got := BuildCitations(matches, 3); len(got) != 3 {
		t.Errorf("limited citations = %d, want 3", len(got))
	}
	if got := BuildCitations(matches[:2], 3); len(got) != 2 {
		t.Errorf("citations = %d, want 2", len(got))
	}
}
