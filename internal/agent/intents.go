// Package agent is the constrained decision loop: classify the request,
// dispatch to exactly one capability, enforce policy, and audit the
// outcome. The agent has no planning or tool-chaining; one request maps
// to one tool invocation.
package agent

import (
	"regexp"
	"strings"
)

// Intents the classifier can produce. Each maps to exactly one handler.
const (
	IntentAskQuestion     = "ask_question"
	IntentAnalyzeDocument = "analyze_document"
	IntentSearchDocuments = "search_documents"
	IntentGetStatus       = "get_status"
	IntentRunSensitivity  = "run_sensitivity"
	IntentExplain         = "explain"
	IntentUnknown         = "unknown"
)

// mustAbstainTerms trip the pre-classification refusal: requests to
// compute, price, or invent are declined before any routing happens.
var mustAbstainTerms = []string{
	"price", "calculate", "compute", "value", "barrier", "option",
	"swaption", "cap", "floor", "exotic", "derivative",
	"invent", "create", "generate", "make up", "fabricate", "estimate",
}

var mustAbstainPatterns = compileTerms(mustAbstainTerms)

func compileTerms(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}

// MustAbstain reports whether the query asks for something the agent
// categorically refuses, and which term tripped the refusal.
func MustAbstain(query string) (bool, string) {
	for i, re := range mustAbstainPatterns {
		if re.MatchString(query) {
			return true, mustAbstainTerms[i]
		}
	}
	return false, ""
}

// intentRule pairs a pattern with the intent it selects. Rules are
// evaluated in order; the first match wins.
type intentRule struct {
	pattern *regexp.Regexp
	intent  string
}

var intentRules = []intentRule{
	{regexp.MustCompile(`(?i)\b(analy[sz]e|review|assess|audit)\b.*\b(document|report|filing|upload)\b`), IntentAnalyzeDocument},
	{regexp.MustCompile(`(?i)\b(search|find|look\s+for|locate)\b.*\b(document|report|filing|guidance)s?\b`), IntentSearchDocuments},
	{regexp.MustCompile(`(?i)\bsensitivit(y|ies)\b`), IntentRunSensitivity},
	{regexp.MustCompile(`(?i)\b(status|state|progress|result)\b.*\brun\b|\brun\b.*\b(status|state|progress|result)\b`), IntentGetStatus},
	{regexp.MustCompile(`(?i)\bexplain\b|\bwhy\b`), IntentExplain},
	{regexp.MustCompile(`(?i)^\s*(what|how|when|where|which|who|does|do|is|are|can|should|must)\b`), IntentAskQuestion},
	{regexp.MustCompile(`\?\s*$`), IntentAskQuestion},
}

// Classify maps a query to an intent. Classification is deterministic
// and pure; an unmatched query is IntentUnknown, never a guess.
func Classify(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return IntentUnknown
	}
	for _, rule := range intentRules {
		if rule.pattern.MatchString(query) {
			return rule.intent
		}
	}
	return IntentUnknown
}
