// Package chunk splits extracted text into embedding-sized pieces.
package chunk

import (
	"regexp"
	"strings"
)

// Chunker packs paragraphs into chunks of at most maxSize characters,
// carrying overlap characters of trailing context into the next chunk.
type Chunker struct {
	maxSize        int
	overlap        int
	minSize        int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// Chunk is one piece of the extracted text, in document order.
type Chunk struct {
	Order     int    `json:"order" bson:"order"`
	Text      string `json:"text" bson:"text"`
	CharCount int    `json:"char_count" bson:"char_count"`
	WordCount int    `json:"word_count" bson:"word_count"`
}

// New returns a Chunker. Non-positive sizes fall back to defaults that suit
// the embedding model's context window.
func New(maxSize, overlap, minSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if minSize <= 0 {
		minSize = 100
	}
	return &Chunker{
		maxSize:        maxSize,
		overlap:        overlap,
		minSize:        minSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Split chunks text along paragraph boundaries. Text at or under maxSize
// comes back as a single chunk; empty text yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	paragraphs := filterEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	current := new(strings.Builder)
	currentSize := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, c.newChunk(current.String(), len(chunks)))
		current = new(strings.Builder)
		currentSize = 0
	}

	for _, paragraph := range paragraphs {
		paraSize := len(paragraph)

		if currentSize+paraSize > c.maxSize && currentSize >= c.minSize {
			flush()

			// Seed the next chunk with trailing context from the previous one.
			if c.overlap > 0 && len(chunks) > 0 {
				overlapText := c.overlapText(chunks[len(chunks)-1].Text)
				if overlapText != "" {
					current.WriteString(overlapText)
					currentSize = len(overlapText)
				}
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
			currentSize += 2
		}
		current.WriteString(paragraph)
		currentSize += paraSize
	}

	flush()
	return chunks
}

func (c *Chunker) newChunk(text string, order int) Chunk {
	return Chunk{
		Order:     order,
		Text:      text,
		CharCount: len(text),
		WordCount: len(strings.Fields(text)),
	}
}

// overlapText takes up to overlap trailing characters, preferring a
// sentence boundary over a hard cut.
func (c *Chunker) overlapText(text string) string {
	if len(text) <= c.overlap {
		return text
	}

	tail := text[len(text)-c.overlap:]
	sentences := filterEmpty(c.sentenceRegex.Split(tail, -1))
	if len(sentences) > 1 {
		return strings.Join(sentences[1:], ". ")
	}
	return tail
}

func filterEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
