package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortContentSingleChunk(t *testing.T) {
	c := New(Config{ChunkSize: 500, Overlap: 50})

	pieces := c.Split("Paragraph A.\n\nParagraph B.")
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
	if pieces[0].Position != 0 {
		t.Errorf("expected position 0, got %d", pieces[0].Position)
	}
	if !strings.Contains(pieces[0].Content, "Paragraph A.") ||
		!strings.Contains(pieces[0].Content, "Paragraph B.") {
		t.Errorf("expected both paragraphs in one chunk, got %q", pieces[0].Content)
	}
}

func TestSplit_WhitespaceOnlyYieldsNothing(t *testing.T) {
	c := New(Config{})

	for _, content := range []string{"", "   ", "\n\n\n", "\t \n\n \t"} {
		if pieces := c.Split(content); len(pieces) != 0 {
			t.Errorf("Split(%q): expected no pieces, got %d", content, len(pieces))
		}
	}
}

func TestSplit_PositionsAreSequential(t *testing.T) {
	c := New(Config{ChunkSize: 20, Overlap: 2})

	var paragraphs []string
	for i := 0; i < 10; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 15))
	}
	pieces := c.Split(strings.Join(paragraphs, "\n\n"))

	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if p.Position != i {
			t.Errorf("piece %d has position %d", i, p.Position)
		}
	}
}

func TestSplit_PreservesParagraphOrder(t *testing.T) {
	c := New(Config{ChunkSize: 30, Overlap: 0})

	paragraphs := []string{
		"alpha " + strings.Repeat("x", 80),
		"bravo " + strings.Repeat("y", 80),
		"charlie " + strings.Repeat("z", 80),
	}
	pieces := c.Split(strings.Join(paragraphs, "\n\n"))

	joined := ""
	for _, p := range pieces {
		joined += p.Content + "\n\n"
	}
	posAlpha := strings.Index(joined, "alpha")
	posBravo := strings.Index(joined, "bravo")
	posCharlie := strings.Index(joined, "charlie")
	if posAlpha < 0 || posBravo < 0 || posCharlie < 0 {
		t.Fatal("a paragraph went missing")
	}
	if !(posAlpha < posBravo && posBravo < posCharlie) {
		t.Errorf("paragraph order not preserved: %d %d %d", posAlpha, posBravo, posCharlie)
	}
}

func TestSplit_ChunksRespectSizeBound(t *testing.T) {
	const size = 40
	c := New(Config{ChunkSize: size, Overlap: 5})

	var paragraphs []string
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, strings.Repeat("ab ", 30))
	}
	pieces := c.Split(strings.Join(paragraphs, "\n\n"))

	// A buffer closes as soon as the next paragraph would push it past the
	// target, so no closed chunk exceeds the size by more than one paragraph
	// worth of overlap seed. Every piece built from single small paragraphs
	// stays within the bound plus one paragraph.
	paraTokens := EstimateTokens(paragraphs[0])
	for i, p := range pieces {
		if got := EstimateTokens(p.Content); got > size+paraTokens {
			t.Errorf("piece %d estimated at %d tokens, bound %d", i, got, size+paraTokens)
		}
	}
}

func TestSplit_OverlapCarriesTrailingTokens(t *testing.T) {
	c := New(Config{ChunkSize: 25, Overlap: 3})

	first := "one two three four five six seven eight nine ten eleven twelve " +
		"thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty"
	second := "fresh paragraph after the break"
	pieces := c.Split(first + "\n\n" + second)

	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}
	if !strings.HasPrefix(pieces[1].Content, "eighteen nineteen twenty") {
		t.Errorf("second piece should start with the overlap tail, got %q", pieces[1].Content)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := Config{}.Normalize()
	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d, want %d", cfg.ChunkSize, DefaultChunkSize)
	}
	if cfg.Overlap != DefaultOverlap {
		t.Errorf("overlap = %d, want %d", cfg.Overlap, DefaultOverlap)
	}
}

func TestNormalize_OverlapClampedBelowChunkSize(t *testing.T) {
	cfg := Config{ChunkSize: 100, Overlap: 150}.Normalize()
	if cfg.Overlap >= cfg.ChunkSize {
		t.Errorf("overlap %d not clamped below chunk size %d", cfg.Overlap, cfg.ChunkSize)
	}

	cfg = Config{ChunkSize: 100, Overlap: -5}.Normalize()
	if cfg.Overlap != 0 {
		t.Errorf("negative overlap should clamp to 0, got %d", cfg.Overlap)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 4000), 1000},
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}
