package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
)

func TestCosine_SelfSimilarityIsOne(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8, 0.1}

	score, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score(v, v) = %f, want 1.0", score)
	}
}

func TestCosine_OppositeClampsToZero(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8}
	neg := []float32{-0.3, 0.5, -0.8}

	score, err := Cosine(v, neg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Errorf("score(v, -v) = %f, want 0 (clamped)", score)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestCosine_ZeroVectorScoresZero(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	score, err := Cosine(zero, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Errorf("score(0, v) = %f, want 0", score)
	}
}

func TestCosine_OrthogonalScoresZero(t *testing.T) {
	score, err := Cosine([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Errorf("orthogonal score = %f, want 0", score)
	}
}

func resultWithScore(score float64) search.Result {
	return search.Result{Score: score}
}

func TestRank_SortsDescendingAndTruncates(t *testing.T) {
	results := []search.Result{
		resultWithScore(0.2),
		resultWithScore(0.9),
		resultWithScore(0.5),
		resultWithScore(0.7),
	}

	ranked := Rank(results, 0, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	if ranked[0].Score != 0.9 {
		t.Errorf("top score = %f, want 0.9", ranked[0].Score)
	}
}

func TestRank_ThresholdIsHardFilter(t *testing.T) {
	results := []search.Result{
		resultWithScore(0.95),
		resultWithScore(0.4),
		resultWithScore(0.7),
		resultWithScore(0.1),
	}

	ranked := Rank(results, 0.5, 10)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(ranked))
	}
	for _, r := range ranked {
		if r.Score < 0.5 {
			t.Errorf("result below threshold surfaced: %f", r.Score)
		}
	}
}

func TestRank_StableOnTies(t *testing.T) {
	a := search.Result{Score: 0.5, Document: nil}
	b := search.Result{Score: 0.5}
	c := search.Result{Score: 0.5}
	in := []search.Result{a, b, c}

	ranked := Rank(in, 0, 0)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	// sort.SliceStable keeps retrieval order for equal scores; with all ties
	// the output order must equal the input order.
	for i := range in {
		if ranked[i].Score != in[i].Score {
			t.Errorf("tie order changed at %d", i)
		}
	}
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []search.Result{resultWithScore(0.1), resultWithScore(0.9)}

	_ = Rank(in, 0, 1)
	if in[0].Score != 0.1 || in[1].Score != 0.9 {
		t.Error("input slice was reordered")
	}
}
