// Package chunker splits document text into overlapping windows for
// embedding. Chunking is deterministic: the same text and configuration
// always produce the same chunk sequence, which keeps chunk identifiers
// stable across re-ingestion.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the window size in runes.
	DefaultSize = 1800

	// DefaultOverlap is how many runes consecutive windows share.
	DefaultOverlap = 250
)

// Config holds chunking parameters.
type Config struct {
	// Size is the maximum chunk length in runes.
	Size int

	// Overlap is the number of runes shared between consecutive chunks.
	// Must be smaller than Size.
	Overlap int
}

// Chunk is one window of a document.
type Chunk struct {
	// Position is the zero-based index of the chunk in document order.
	Position int

	// Start and End are byte offsets into the source text such that
	// text[Start:End] == Text.
	Start int
	End   int

	// Text is the chunk content.
	Text string
}

// Chunker produces ordered, overlapping chunks from document text.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. A zero Config uses DefaultSize and
// DefaultOverlap; an explicit Size with zero Overlap means no overlap.
func New(c Config) (*Chunker, error) {
	size := c.Size
	if size == 0 {
		size = DefaultSize
	}
	overlap := c.Overlap
	if overlap == 0 && c.Size == 0 {
		overlap = DefaultOverlap
	}

	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks text into windows of the configured size, each window
// starting size-overlap runes after the previous one. Offsets are byte
// positions into text. A document that is empty or all whitespace yields
// no chunks; a document shorter than one window yields exactly one.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Byte offset of every rune, plus a sentinel for the end of text.
	// Windows advance in rune counts but chunks report byte offsets.
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	runes := len(offsets) - 1
	step := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < runes; start += step {
		end := start + c.size
		if end > runes {
			end = runes
		}

		chunks = append(chunks, Chunk{
			Position: len(chunks),
			Start:    offsets[start],
			End:      offsets[end],
			Text:     text[offsets[start]:offsets[end]],
		})

		if end == runes {
			break
		}
	}

	return chunks
}

// Size reports the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap reports the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
