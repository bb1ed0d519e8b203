// Package ingest turns uploaded documents into catalogued, chunked
// corpus entries. Chunking favors paragraph and sentence boundaries so
// retrieval never scores a chunk that starts mid-sentence.
package ingest

import (
	"regexp"
	"strings"
)

// Chunking geometry. Overlap keeps context that straddles a boundary
// retrievable from both sides.
const (
	chunkSize    = 1000
	chunkOverlap = 150
	minChunkSize = 50
)

// Span is one chunk of source text with positional metadata.
type Span struct {
	Text      string
	Section   string
	Paragraph string
	PageFrom  int
	PageTo    int
}

var (
	sectionRe   = regexp.MustCompile(`(?m)^\s*((?:\d+\.)+\d*\s+\S.*|[A-Z][A-Z0-9 \-]{3,})\s*$`)
	paragraphRe = regexp.MustCompile(`(?i)\bparagraphs?\s+([A-Z]?\d+(?:\.\d+)*[A-Za-z]?)`)
)

// Split chunks text into overlapping spans. Boundaries back up to the
// nearest paragraph break, then sentence end, within the overlap window.
func Split(text string) []Span {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	pages := pageOffsets(text)

	var spans []Span
	section := ""
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = backtrack(text, start, end)
		}

		piece := strings.TrimSpace(text[start:end])
		if len(piece) >= minChunkSize || (len(spans) == 0 && piece != "") {
			if h := sectionRe.FindString(piece); h != "" {
				section = strings.TrimSpace(h)
			}
			paragraph := ""
			if m := paragraphRe.FindStringSubmatch(piece); m != nil {
				paragraph = m[1]
			}
			spans = append(spans, Span{
				Text:      piece,
				Section:   section,
				Paragraph: paragraph,
				PageFrom:  pageAt(pages, start),
				PageTo:    pageAt(pages, end-1),
			})
		}

		if end == len(text) {
			break
		}
		next := end - chunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return spans
}

// backtrack moves a cut point backwards to the nearest paragraph break,
// falling back to a sentence end, within the overlap window. A cut with
// no boundary nearby stays where it is.
func backtrack(text string, start, end int) int {
	window := end - chunkOverlap
	if window < start+minChunkSize {
		window = start + minChunkSize
	}
	if idx := strings.LastIndex(text[window:end], "\n\n"); idx >= 0 {
		return window + idx + 2
	}
	for _, sep := range []string{". ", ".\n", "! ", "? "} {
		if idx := strings.LastIndex(text[window:end], sep); idx >= 0 {
			return window + idx + len(sep)
		}
	}
	return end
}

// pageOffsets returns the byte offset where each page starts. Pages are
// delimited by form feeds; text without them is a single page.
func pageOffsets(text string) []int {
	offsets := []int{0}
	for i, r := range text {
		if r == '\f' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func pageAt(offsets []int, pos int) int {
	page := 1
	for i, off := range offsets {
		if pos >= off {
			page = i + 1
		}
	}
	return page
}
