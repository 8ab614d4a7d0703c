package chunk

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	c := New(0, 0, 0)

	for _, text := range []string{"", "   ", "\n\n\n\n"} {
		if chunks := c.Split(text); len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(1000, 0, 100)

	chunks := c.Split("One short paragraph.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "One short paragraph." {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].Order != 0 {
		t.Errorf("chunk order = %d, want 0", chunks[0].Order)
	}
	if chunks[0].WordCount != 3 {
		t.Errorf("word count = %d, want 3", chunks[0].WordCount)
	}
}

func TestSplitJoinsParagraphsUnderLimit(t *testing.T) {
	c := New(1000, 0, 100)

	chunks := c.Split("First paragraph.\n\nSecond paragraph.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "First paragraph.\n\nSecond paragraph."
	if chunks[0].Text != want {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, want)
	}
}

func TestSplitBreaksAtMaxSize(t *testing.T) {
	c := New(200, 0, 50)

	para := strings.Repeat("word ", 30) // ~150 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Order != i {
			t.Errorf("chunk %d has order %d", i, ch.Order)
		}
		if ch.CharCount != len(ch.Text) {
			t.Errorf("chunk %d char count %d != len %d", i, ch.CharCount, len(ch.Text))
		}
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	c := New(200, 60, 50)

	para := strings.TrimSpace(strings.Repeat("alpha beta gamma ", 10)) // ~170 chars
	chunks := c.Split(para + "\n\n" + para)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	// The second chunk starts with trailing context from the first.
	if !strings.Contains(chunks[0].Text, strings.SplitN(chunks[1].Text, "\n\n", 2)[0]) {
		t.Errorf("second chunk does not open with context from the first:\nfirst: %q\nsecond: %q",
			chunks[0].Text, chunks[1].Text)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(-1, -5, 0)
	if c.maxSize != 1000 || c.overlap != 0 || c.minSize != 100 {
		t.Errorf("defaults = (%d, %d, %d), want (1000, 0, 100)", c.maxSize, c.overlap, c.minSize)
	}
}
