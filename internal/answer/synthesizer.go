package answer

import (
	"context"
	"log/slog"

	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/models"
)

// minPortConfidence is the floor below which a generated draft is
// discarded in favor of abstaining.
const minPortConfidence = 0.5

// Synthesizer turns a question plus retrieved evidence into an Answer.
// Abstention is the default: an answer is only produced when evidence
// clears the retrieval cutoff and the draft clears the confidence floor.
type Synthesizer struct {
	retriever *evidence.Retriever
	port      generation.Port
	logger    *slog.Logger
}

// NewSynthesizer wires a retriever and a generation port.
func NewSynthesizer(retriever *evidence.Retriever, port generation.Port, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{retriever: retriever, port: port, logger: logger}
}

// Answer retrieves evidence for the question and synthesizes a response.
// It never returns an error: every failure mode degrades to either an
// abstention or the deterministic evidence digest.
func (s *Synthesizer) Answer(ctx context.Context, question, standard string) models.Answer {
	matches := s.retriever.Search(ctx, question, 0, standard)
	if len(matches) == 0 {
		return models.AbstainAnswer("no relevant guidance found in the document corpus")
	}

	mean := evidence.MeanScore(matches)
	if mean < s.retriever.MinScore() {
		s.logger.Debug("weak evidence, abstaining",
			slog.Float64("mean_score", mean),
			slog.Float64("min_score", s.retriever.MinScore()))
		return models.AbstainAnswer("retrieved guidance is not sufficiently relevant to the question")
	}

	citations := BuildCitations(matches, MaxCitations)

	res, err := s.port.Generate(ctx, generation.PromptContext{
		Question: question,
		Standard: standard,
		Evidence: matches,
	})
	if err != nil {
		s.logger.Warn("generation failed, using evidence digest",
			slog.String("error", err.Error()))
		return models.Answer{
			Status:     models.StatusOK,
			Text:       digest(matches),
			Citations:  citations,
			Confidence: mean,
		}
	}

	conf := res.Confidence
	if conf > 1.0 {
		conf = 1.0
	}
	if conf < minPortConfidence {
		return models.AbstainAnswer("generated answer did not meet the confidence threshold")
	}
	// The draft must ground itself: a reply that cites nothing is a
	// fabrication risk no matter how confident it sounds.
	if len(res.Citations) == 0 {
		return models.AbstainAnswer("generated answer cited no guidance")
	}

	return models.Answer{
		Status:     models.StatusOK,
		Text:       res.Text,
		Citations:  citations,
		Confidence: conf,
	}
}
