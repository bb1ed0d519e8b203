package policy

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/harwell/attest/internal/models"
)

// Check names, stable across releases; they appear in audit records and
// explain reports.
const (
	CheckCitations  = "citations"
	CheckConfidence = "confidence"
	CheckLanguage   = "language"
	CheckContent    = "content"
)

// CheckResult is the outcome of one check family for an explain report.
type CheckResult struct {
	Name       string   `json:"name"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
}

// Report is the read-only result of evaluating an answer against the
// active policy without enforcing it.
type Report struct {
	Compliant bool          `json:"compliant"`
	Checks    []CheckResult `json:"checks"`
}

// Guard evaluates answers against the active policy snapshot. Apply is
// idempotent: its own abstentions pass every check.
type Guard struct {
	snapshot atomic.Pointer[compiled]
}

// NewGuard creates a guard with the given initial policy.
func NewGuard(cfg Config) *Guard {
	g := &Guard{}
	g.snapshot.Store(compilePolicy(cfg))
	return g
}

// Reload swaps in a new policy atomically.
func (g *Guard) Reload(cfg Config) {
	g.snapshot.Store(compilePolicy(cfg))
}

// Config returns a copy of the active policy.
func (g *Guard) Config() Config {
	return g.snapshot.Load().cfg
}

// Apply enforces the policy. A compliant answer is returned unchanged;
// any violation replaces the whole answer with an abstention that names
// every violated rule. Abstentions and review verdicts pass through
// untouched, which makes repeated application a no-op.
func (g *Guard) Apply(ans models.Answer) models.Answer {
	if ans.Status != models.StatusOK {
		return ans
	}
	violations := g.snapshot.Load().evaluate(ans)
	if len(violations) == 0 {
		return ans
	}
	return models.Answer{
		Status:     models.StatusAbstain,
		Text:       "Policy violations detected: " + strings.Join(violations, "; "),
		Citations:  []models.Citation{},
		Confidence: 0.0,
	}
}

// Explain evaluates every check family without enforcing, for the
// policy-check endpoint and for operators tuning a policy file.
func (g *Guard) Explain(ans models.Answer) Report {
	c := g.snapshot.Load()
	checks := []CheckResult{
		{Name: CheckCitations, Violations: c.checkCitations(ans)},
		{Name: CheckConfidence, Violations: c.checkConfidence(ans)},
		{Name: CheckLanguage, Violations: c.checkLanguage(ans)},
		{Name: CheckContent, Violations: c.checkContent(ans)},
	}
	compliant := true
	for i := range checks {
		checks[i].Passed = len(checks[i].Violations) == 0
		if !checks[i].Passed {
			compliant = false
		}
	}
	return Report{Compliant: compliant, Checks: checks}
}

// evaluate collects every violation across all check families. All
// checks run even after the first failure so the abstention names the
// complete set.
func (c *compiled) evaluate(ans models.Answer) []string {
	var out []string
	out = append(out, c.checkCitations(ans)...)
	out = append(out, c.checkConfidence(ans)...)
	out = append(out, c.checkLanguage(ans)...)
	out = append(out, c.checkContent(ans)...)
	return out
}

func (c *compiled) checkCitations(ans models.Answer) []string {
	if ans.Status != models.StatusOK {
		return nil
	}
	var out []string
	if len(ans.Citations) < c.cfg.MinCitations {
		out = append(out, fmt.Sprintf("insufficient citations: %d provided, %d required",
			len(ans.Citations), c.cfg.MinCitations))
	}
	for i, cit := range ans.Citations {
		if strings.TrimSpace(cit.Standard) == "" {
			out = append(out, fmt.Sprintf("citation %d has no standard", i+1))
		}
		if strings.TrimSpace(cit.Paragraph) == "" {
			out = append(out, fmt.Sprintf("citation %d has no paragraph", i+1))
		}
	}
	return out
}

func (c *compiled) checkConfidence(ans models.Answer) []string {
	if ans.Status != models.StatusOK {
		return nil
	}
	if ans.Confidence < c.cfg.MinConfidence {
		return []string{fmt.Sprintf("confidence %.2f below required %.2f",
			ans.Confidence, c.cfg.MinConfidence)}
	}
	return nil
}

func (c *compiled) checkLanguage(ans models.Answer) []string {
	if ans.Status != models.StatusOK {
		return nil
	}
	var out []string
	for i, re := range c.disallowed {
		if re.MatchString(ans.Text) {
			out = append(out, fmt.Sprintf("disallowed term %q", c.cfg.DisallowedTerms[i]))
		}
	}
	for i, re := range c.restricted {
		if re.MatchString(ans.Text) {
			out = append(out, fmt.Sprintf("restricted advice topic %q", c.cfg.RestrictedAdvice[i]))
		}
	}
	return out
}

func (c *compiled) checkContent(ans models.Answer) []string {
	if ans.Status != models.StatusOK {
		return nil
	}
	var out []string
	n := len(strings.TrimSpace(ans.Text))
	switch {
	case n < c.cfg.MinAnswerLength:
		out = append(out, fmt.Sprintf("answer too short: %d chars, minimum %d",
			n, c.cfg.MinAnswerLength))
	case n > c.cfg.MaxAnswerLength:
		out = append(out, fmt.Sprintf("answer too long: %d chars, maximum %d",
			n, c.cfg.MaxAnswerLength))
	}
	for i, re := range c.prohibited {
		if re.MatchString(ans.Text) {
			out = append(out, fmt.Sprintf("prohibited phrase %q", c.cfg.ProhibitedPhrases[i]))
		}
	}
	return out
}
