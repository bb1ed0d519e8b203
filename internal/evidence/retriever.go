package evidence

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harwell/attest/internal/models"
)

// Retrieval defaults. MaxTopK is a hard ceiling regardless of what the
// caller asks for.
const (
	MaxTopK         = 6
	DefaultMinScore = 0.2
	DefaultTimeout  = 5 * time.Second
)

// Retriever wraps a Store with a result cap, a minimum-score cutoff, and
// a timeout. Retrieval is read-only and never fails: a slow or
// unreachable backend yields an empty result, which callers must treat
// as insufficient evidence.
type Retriever struct {
	store    Store
	minScore float64
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRetriever creates a retriever over the given store. Non-positive
// minScore or timeout select the defaults.
func NewRetriever(store Store, minScore float64, timeout time.Duration, logger *slog.Logger) *Retriever {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, minScore: minScore, timeout: timeout, logger: logger}
}

// MinScore returns the configured cutoff; the synthesizer re-applies it
// to the aggregate score of returned matches.
func (r *Retriever) MinScore() float64 {
	return r.minScore
}

// Search returns up to topK matches at or above the cutoff, sorted
// descending by score, optionally restricted to one standard. Entries
// below the cutoff are excluded entirely.
func (r *Retriever) Search(ctx context.Context, query string, topK int, standard string) []models.EvidenceMatch {
	if topK <= 0 || topK > MaxTopK {
		topK = MaxTopK
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	matches, err := r.store.Search(ctx, query, 0)
	if err != nil {
		r.logger.Warn("retrieval failed, treating as no evidence",
			slog.String("error", err.Error()))
		return nil
	}

	var out []models.EvidenceMatch
	for _, m := range matches {
		if m.Score < r.minScore {
			continue
		}
		if standard != "" && !strings.EqualFold(m.Standard, standard) {
			continue
		}
		out = append(out, m)
		if len(out) == topK {
			break
		}
	}
	return out
}

// MeanScore returns the average score across matches, or 0 for none.
func MeanScore(matches []models.EvidenceMatch) float64 {
	if len(matches) == 0 {
		return 0.0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Score
	}
	return sum / float64(len(matches))
}
