// Package chunker splits document content into retrieval-sized, overlapping
// segments along paragraph boundaries.
package chunker

import "strings"

const (
	// DefaultChunkSize is the target chunk size in estimated tokens.
	DefaultChunkSize = 500
	// DefaultOverlap is the overlap carried between adjacent chunks, in estimated tokens.
	DefaultOverlap = 50
)

// Config holds chunking parameters. Zero values fall back to defaults;
// overlap is clamped below the chunk size at normalization time.
type Config struct {
	ChunkSize int
	Overlap   int
}

// Normalize returns a config with defaults applied and the overlap clamped so
// it never reaches the chunk size.
func (c Config) Normalize() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	} else if c.Overlap == 0 {
		c.Overlap = DefaultOverlap
	}
	if c.Overlap >= c.ChunkSize {
		c.Overlap = c.ChunkSize / 2
	}
	return c
}

// Piece is one chunk of content with its order within the document.
type Piece struct {
	Content  string
	Position int
}

// Chunker accumulates paragraphs into token-bounded pieces.
type Chunker struct {
	cfg Config
}

// New creates a Chunker with a normalized config.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.Normalize()}
}

// Config returns the normalized configuration in effect.
func (c *Chunker) Config() Config { return c.cfg }

// Split breaks content into ordered pieces. Paragraphs (blank-line-delimited
// blocks) are accumulated until the next paragraph would push the buffer past
// the chunk size; the buffer is then closed and the next one is seeded with
// the trailing overlap tokens of the closed chunk. Whitespace-only content
// yields no pieces; content shorter than one chunk yields exactly one.
func (c *Chunker) Split(content string) []Piece {
	paragraphs := splitParagraphs(content)
	if len(paragraphs) == 0 {
		return nil
	}

	var pieces []Piece
	var buf string

	for _, para := range paragraphs {
		candidate := join(buf, para)
		if buf != "" && EstimateTokens(candidate) > c.cfg.ChunkSize {
			pieces = append(pieces, Piece{Content: buf, Position: len(pieces)})
			buf = join(overlapSuffix(buf, c.cfg.Overlap), para)
			continue
		}
		buf = candidate
	}

	if strings.TrimSpace(buf) != "" {
		pieces = append(pieces, Piece{Content: buf, Position: len(pieces)})
	}

	return pieces
}

// EstimateTokens is a cheap deterministic token-count heuristic, roughly one
// token per four characters. A real tokenizer can replace it without changing
// the chunking contract.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// splitParagraphs breaks content into blank-line-delimited blocks,
// dropping empty and whitespace-only paragraphs.
func splitParagraphs(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	raw := strings.Split(normalized, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// overlapSuffix returns the trailing n whitespace-delimited tokens of text.
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := strings.Fields(text)
	if len(tokens) > n {
		tokens = tokens[len(tokens)-n:]
	}
	return strings.Join(tokens, " ")
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n\n" + b
}
