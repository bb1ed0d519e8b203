package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harwell/attest/internal/answer"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/models"
)

const (
	// itemMetConfidence is the per-item floor: an item counts as met only
	// when its answer came back OK at or above this confidence.
	itemMetConfidence = 0.6
	// abstainConfidence is the aggregate floor: below it the whole
	// analysis abstains rather than issuing a verdict.
	abstainConfidence = 0.65

	defaultWorkers = 4
)

// Analyzer runs every checklist item against one document's own chunks
// and aggregates the per-item outcomes into a Feedback verdict.
type Analyzer struct {
	catalog  catalog.Store
	port     generation.Port
	minScore float64
	timeout  time.Duration
	workers  int
	logger   *slog.Logger
	snapshot atomic.Pointer[Config]
}

// NewAnalyzer wires an analyzer over the catalog and generation port.
// Non-positive minScore, timeout or workers select defaults.
func NewAnalyzer(cat catalog.Store, port generation.Port, cfg Config, minScore float64, timeout time.Duration, workers int, logger *slog.Logger) *Analyzer {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		catalog:  cat,
		port:     port,
		minScore: minScore,
		timeout:  timeout,
		workers:  workers,
		logger:   logger,
	}
	a.snapshot.Store(&cfg)
	return a
}

// Reload swaps in a new checklist atomically. Analyses already running
// finish with the checklist they started with.
func (a *Analyzer) Reload(cfg Config) {
	a.snapshot.Store(&cfg)
}

// Items returns the active checklist.
func (a *Analyzer) Items() []models.ChecklistItem {
	return a.snapshot.Load().Items
}

// Analyze evaluates the document against the active checklist. Items run
// concurrently with a bounded worker pool; the aggregate verdict is only
// computed after every item has finished. A document without analyzable
// content yields an abstaining Feedback rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, documentID string) (models.Feedback, error) {
	if _, err := a.catalog.Document(documentID); err != nil {
		return models.Feedback{}, err
	}
	chunks, err := a.catalog.Chunks(documentID)
	if err != nil {
		return models.Feedback{}, err
	}
	if len(chunks) == 0 {
		return models.AbstainFeedback("document has no analyzable content"), nil
	}

	// Retrieval is scoped to this document's chunks so evidence from the
	// wider corpus cannot satisfy an item the document itself misses.
	store := evidence.NewSliceStore(chunks, nil)
	retriever := evidence.NewRetriever(store, a.minScore, a.timeout, a.logger)
	synth := answer.NewSynthesizer(retriever, a.port, a.logger)

	items := a.Items()
	if len(items) == 0 {
		return models.AbstainFeedback("no checklist items configured"), nil
	}
	results := make([]models.ChecklistResult, len(items))
	answers := make([]models.Answer, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ans := synth.Answer(gctx, itemQuestion(item), "")
			answers[i] = ans
			results[i] = itemResult(item, ans)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Feedback{}, err
	}

	return aggregate(items, results, answers), nil
}

// itemQuestion phrases a checklist item as a question over the document.
func itemQuestion(item models.ChecklistItem) string {
	scope := item.Category
	if scope == "" {
		scope = "compliance"
	}
	return fmt.Sprintf("Does the document address the following %s requirement: the document %s?",
		scope, item.Description)
}

// itemResult derives the per-item outcome from its answer. Met requires
// both an OK status and the per-item confidence floor.
func itemResult(item models.ChecklistItem, ans models.Answer) models.ChecklistResult {
	met := ans.Status == models.StatusOK && ans.Confidence >= itemMetConfidence
	notes := fmt.Sprintf("addressed (confidence %.2f)", ans.Confidence)
	if !met {
		switch {
		case ans.Status != models.StatusOK:
			notes = "not addressed: " + ans.Text
		default:
			notes = fmt.Sprintf("weakly addressed (confidence %.2f below %.2f)",
				ans.Confidence, itemMetConfidence)
		}
	}
	return models.ChecklistResult{
		ItemID:    item.ID,
		Key:       item.Key,
		Met:       met,
		Notes:     notes,
		Citations: ans.Citations,
	}
}

// aggregate computes the overall verdict once every item has finished.
func aggregate(items []models.ChecklistItem, results []models.ChecklistResult, answers []models.Answer) models.Feedback {
	met := 0
	criticalFailures := 0
	var confSum float64
	for i, r := range results {
		if r.Met {
			met++
		} else if items[i].Critical {
			criticalFailures++
		}
		confSum = confSum + answers[i].Confidence
	}
	avgConf := confSum / float64(len(results))
	pct := 100 * met / len(results)

	status := models.StatusOK
	switch {
	case avgConf < abstainConfidence:
		status = models.StatusAbstain
	case criticalFailures > 0:
		status = models.StatusNeedsReview
	}

	var coverage string
	switch {
	case pct >= 80:
		coverage = "the document addresses most checklist requirements"
	case pct >= 60:
		coverage = "the document has moderate checklist coverage"
	default:
		coverage = "the document has significant checklist gaps"
	}
	summary := fmt.Sprintf("%d of %d checklist items met (%d%%): %s.",
		met, len(results), pct, coverage)
	if criticalFailures > 0 {
		summary += fmt.Sprintf(" %d critical item(s) not met.", criticalFailures)
	}
	if status == models.StatusAbstain {
		summary += fmt.Sprintf(" Aggregate confidence %.2f is too low for a verdict.", avgConf)
	}

	return models.Feedback{
		Status:     status,
		Summary:    summary,
		Items:      results,
		Confidence: avgConf,
	}
}
