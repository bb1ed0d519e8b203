package ingest

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	spans := Split("A short paragraph about classification of financial instruments.")
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].PageFrom != 1 || spans[0].PageTo != 1 {
		t.Errorf("pages = %d-%d, want 1-1", spans[0].PageFrom, spans[0].PageTo)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if spans := Split(""); len(spans) != 0 {
		t.Errorf("spans = %d, want 0", len(spans))
	}
}

func TestSplitRespectsSize(t *testing.T) {
	text := strings.Repeat("The entity shall measure the instrument at amortised cost. ", 100)
	spans := Split(text)
	if len(spans) < 2 {
		t.Fatalf("spans = %d, want several for %d chars", len(spans), len(text))
	}
	for i, sp := range spans {
		if len(sp.Text) > chunkSize {
			t.Errorf("span %d length = %d, exceeds %d", i, len(sp.Text), chunkSize)
		}
	}
}

func TestSplitBreaksAtSentences(t *testing.T) {
	text := strings.Repeat("The entity shall disclose the carrying amount of each class. ", 60)
	for _, sp := range Split(text) {
		trimmed := strings.TrimSpace(sp.Text)
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("span does not end at a sentence boundary: %q", trimmed[len(trimmed)-20:])
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("Classification depends on the business model and cash flow characteristics. ", 50)
	spans := Split(text)
	if len(spans) < 2 {
		t.Fatal("expected multiple spans")
	}
	// Consecutive spans share text from the overlap window.
	tail := spans[0].Text[len(spans[0].Text)-40:]
	if !strings.Contains(spans[1].Text, strings.TrimSpace(tail)[:20]) {
		t.Errorf("no overlap between consecutive spans")
	}
}

func TestSplitPagesFromFormFeeds(t *testing.T) {
	text := "Page one content about recognition.\fPage two content about measurement."
	spans := Split(text)
	if len(spans) == 0 {
		t.Fatal("no spans")
	}
	last := spans[len(spans)-1]
	if last.PageTo != 2 {
		t.Errorf("last span PageTo = %d, want 2", last.PageTo)
	}
}

func TestSplitParagraphReference(t *testing.T) {
	spans := Split("As required by paragraph 6.4.1, the hedging relationship shall be documented at inception.")
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Paragraph != "6.4.1" {
		t.Errorf("paragraph = %q, want 6.4.1", spans[0].Paragraph)
	}
}
