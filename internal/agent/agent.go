package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harwell/attest/internal/answer"
	"github.com/harwell/attest/internal/audit"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/checklist"
	"github.com/harwell/attest/internal/events"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/policy"
	"github.com/harwell/attest/internal/valuation"
)

// Request is one user turn. Query drives classification; the remaining
// fields carry explicit references when the caller already knows them.
type Request struct {
	User       string
	Query      string
	DocumentID string
	RunID      string
	Standard   string
}

// Response is the agent's decision for one request, already
// policy-checked and audited.
type Response struct {
	InteractionID int64                    `json:"interaction_id"`
	Intent        string                   `json:"intent"`
	Answer        models.Answer            `json:"answer"`
	Feedback      *models.Feedback         `json:"feedback,omitempty"`
	Documents     []models.DocumentSummary `json:"documents,omitempty"`
}

// Agent wires the capabilities behind the decision loop.
type Agent struct {
	synth     *answer.Synthesizer
	guard     *policy.Guard
	analyzer  *checklist.Analyzer
	catalog   catalog.Store
	valuation *valuation.Client
	trail     *audit.Trail
	broker    *events.Broker
	logger    *slog.Logger
}

// New creates the agent. broker may be nil when no event stream is
// wanted (e.g. the stdio tool server).
func New(synth *answer.Synthesizer, guard *policy.Guard, analyzer *checklist.Analyzer,
	cat catalog.Store, val *valuation.Client, trail *audit.Trail,
	broker *events.Broker, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		synth:     synth,
		guard:     guard,
		analyzer:  analyzer,
		catalog:   cat,
		valuation: val,
		trail:     trail,
		broker:    broker,
		logger:    logger,
	}
}

// Handle runs one request through classify, dispatch, policy and audit.
// The only errors it returns are a cancelled context, an unknown
// document reference, and an unavailable audit trail; every other
// failure mode is expressed as an abstention inside the Response.
func (a *Agent) Handle(ctx context.Context, req Request) (*Response, error) {
	return a.run(ctx, Classify(req.Query), req)
}

// Ask answers a direct question, skipping classification.
func (a *Agent) Ask(ctx context.Context, user, question, standard string) (*Response, error) {
	return a.run(ctx, IntentAskQuestion, Request{User: user, Query: question, Standard: standard})
}

// Analyze runs the checklist over a document, skipping classification.
func (a *Agent) Analyze(ctx context.Context, user, documentID string) (*Response, error) {
	return a.run(ctx, IntentAnalyzeDocument, Request{
		User:       user,
		Query:      "analyze document " + documentID,
		DocumentID: documentID,
	})
}

func (a *Agent) run(ctx context.Context, intent string, req Request) (*Response, error) {
	resp := &Response{Intent: intent}
	tool := ""

	if refuse, term := MustAbstain(req.Query); refuse {
		resp.Answer = models.AbstainAnswer(fmt.Sprintf(
			"this assistant does not perform pricing, computation or content invention (requested: %q)", term))
	} else {
		var err error
		tool, err = a.dispatch(ctx, intent, req, resp)
		if err != nil {
			return nil, err
		}
	}

	// A cancelled request is never audited: the decision was not
	// delivered, so it must not enter the trail.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := a.record(ctx, req, resp, tool)
	if err != nil {
		return nil, err
	}
	resp.InteractionID = id

	if a.broker != nil {
		a.broker.PublishDecision(events.Decision{
			InteractionID: id,
			Intent:        intent,
			Status:        a.status(resp),
			Confidence:    a.confidence(resp),
			Tool:          tool,
		})
	}
	return resp, nil
}

// dispatch routes to exactly one capability and returns the tool name
// for the audit record.
func (a *Agent) dispatch(ctx context.Context, intent string, req Request, resp *Response) (string, error) {
	switch intent {
	case IntentAskQuestion, IntentExplain:
		resp.Answer = a.guard.Apply(a.synth.Answer(ctx, req.Query, req.Standard))
		return "answer_synthesizer", nil

	case IntentAnalyzeDocument:
		if req.DocumentID == "" {
			resp.Answer = models.AbstainAnswer("document analysis requires a document reference")
			return "", nil
		}
		fb, err := a.analyzer.Analyze(ctx, req.DocumentID)
		if err != nil {
			return "", err
		}
		resp.Feedback = &fb
		return "checklist_analyzer", nil

	case IntentSearchDocuments:
		docs, err := a.catalog.SearchDocuments(searchTerm(req.Query), 10)
		if err != nil {
			a.logger.Warn("document search failed", slog.String("error", err.Error()))
			resp.Answer = models.AbstainAnswer("document search is unavailable")
			return "document_search", nil
		}
		resp.Documents = docs
		resp.Answer = searchAnswer(docs)
		return "document_search", nil

	case IntentGetStatus:
		if req.RunID == "" {
			resp.Answer = models.AbstainAnswer("run status requires a run identifier")
			return "", nil
		}
		status, err := a.valuation.Status(ctx, req.RunID)
		if err != nil {
			a.logger.Warn("valuation status failed", slog.String("error", err.Error()))
			resp.Answer = models.AbstainAnswer("the valuation reporting service is unavailable")
			return "valuation_status", nil
		}
		resp.Answer = models.Answer{
			Status: models.StatusOK,
			Text: fmt.Sprintf("Run %s (%s) is %s: value %.2f %s.",
				status.RunID, status.Instrument, status.Status, status.Value, status.Currency),
			Citations:  []models.Citation{},
			Confidence: 1.0,
		}
		return "valuation_status", nil

	case IntentRunSensitivity:
		if req.RunID == "" {
			resp.Answer = models.AbstainAnswer("sensitivity reporting requires a run identifier")
			return "", nil
		}
		sens, err := a.valuation.Sensitivities(ctx, req.RunID)
		if err != nil {
			a.logger.Warn("valuation sensitivities failed", slog.String("error", err.Error()))
			resp.Answer = models.AbstainAnswer("the valuation reporting service is unavailable")
			return "valuation_sensitivities", nil
		}
		resp.Answer = sensitivityAnswer(req.RunID, sens)
		return "valuation_sensitivities", nil

	default:
		resp.Answer = models.AbstainAnswer("request not understood. Supported requests: " +
			"questions about accounting standards, document analysis, document search, " +
			"and reporting on completed valuation runs")
		return "", nil
	}
}

// record writes the audit entry. This is the one step whose failure is
// fatal for the request.
func (a *Agent) record(ctx context.Context, req Request, resp *Response, tool string) (int64, error) {
	rec := models.AuditRecord{
		User:     req.User,
		Question: req.Query,
		Intent:   resp.Intent,
		ToolUsed: tool,
	}
	if resp.Feedback != nil {
		rec.Response = resp.Feedback.Summary
		rec.Status = resp.Feedback.Status
		rec.Confidence = resp.Feedback.Confidence
		rec.DocumentIDs = []string{req.DocumentID}
		for _, item := range resp.Feedback.Items {
			rec.Citations = append(rec.Citations, item.Citations...)
		}
	} else {
		rec.Response = resp.Answer.Text
		rec.Status = resp.Answer.Status
		rec.Confidence = resp.Answer.Confidence
		rec.Citations = resp.Answer.Citations
		for _, d := range resp.Documents {
			rec.DocumentIDs = append(rec.DocumentIDs, d.ID)
		}
	}
	return a.trail.Record(ctx, rec)
}

func (a *Agent) status(resp *Response) string {
	if resp.Feedback != nil {
		return resp.Feedback.Status
	}
	return resp.Answer.Status
}

func (a *Agent) confidence(resp *Response) float64 {
	if resp.Feedback != nil {
		return resp.Feedback.Confidence
	}
	return resp.Answer.Confidence
}

// searchTerm strips the search phrasing off a query so the catalog sees
// the actual terms.
func searchTerm(query string) string {
	term := strings.TrimSpace(query)
	for _, prefix := range []string{"search for", "search", "find", "look for", "locate"} {
		if rest, ok := cutPrefixFold(term, prefix); ok {
			term = strings.TrimSpace(rest)
			break
		}
	}
	term = strings.TrimSuffix(term, "?")
	for _, noise := range []string{"documents about", "documents on", "documents for", "documents"} {
		if rest, ok := cutPrefixFold(term, noise); ok {
			term = strings.TrimSpace(rest)
			break
		}
	}
	return term
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func searchAnswer(docs []models.DocumentSummary) models.Answer {
	if len(docs) == 0 {
		return models.AbstainAnswer("no documents in the corpus match the search terms")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d document(s) matched:", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "\n- %s (%s, %s)", d.Title, d.Standard, d.ID)
	}
	return models.Answer{
		Status:     models.StatusOK,
		Text:       b.String(),
		Citations:  []models.Citation{},
		Confidence: 1.0,
	}
}

func sensitivityAnswer(runID string, sens []valuation.Sensitivity) models.Answer {
	if len(sens) == 0 {
		return models.AbstainAnswer("no pre-computed sensitivities are available for this run")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pre-computed sensitivities for run %s:", runID)
	for _, s := range sens {
		fmt.Fprintf(&b, "\n- %s (%s): %.4f", s.Name, s.Shift, s.Value)
	}
	return models.Answer{
		Status:     models.StatusOK,
		Text:       b.String(),
		Citations:  []models.Citation{},
		Confidence: 1.0,
	}
}
