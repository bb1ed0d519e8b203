// Package evidence implements scored retrieval over catalogued chunks.
package evidence

import "strings"

// ScoreFunc computes the relevance of a chunk text to a query, in
// [0, 1], with higher meaning more relevant. The retrieval pipeline only
// requires monotonicity, so alternative scorers (e.g. a vector index
// adapter) are drop-in replacements.
type ScoreFunc func(query, text string) float64

// Relevance is the reference scorer: word-overlap fraction weighted 0.7
// plus a phrase-containment bonus weighted 0.3.
func Relevance(query, text string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}
	textLower := strings.ToLower(text)

	queryWords := fieldsSet(query)
	textWords := fieldsSet(textLower)

	common := 0
	for w := range queryWords {
		if _, ok := textWords[w]; ok {
			common++
		}
	}
	overlap := float64(common) / float64(len(queryWords))

	phrase := 0.0
	if strings.Contains(textLower, query) {
		phrase = 1.0
	} else {
		for w := range queryWords {
			if len(w) > 2 && strings.Contains(textLower, w) {
				phrase += 0.3
			}
		}
		if phrase > 1.0 {
			phrase = 1.0
		}
	}

	score := overlap*0.7 + phrase*0.3
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func fieldsSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
