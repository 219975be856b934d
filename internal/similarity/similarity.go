// Package similarity scores embedding vectors and ranks retrieval candidates.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
)

// Cosine computes the cosine similarity of two equal-length vectors, clamped
// into [0,1]. A zero-magnitude operand or a non-finite intermediate scores 0;
// negative cosine clamps to 0 rather than propagating, since retrieval ranking
// only orders within the non-negative band.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("got %d and %d dimensions: %w", len(a), len(b), domain.ErrVectorDimMismatch)
	}

	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, nil
	}
	if score < 0 {
		return 0, nil
	}
	if score > 1 {
		return 1, nil
	}
	return score, nil
}

// Rank applies the threshold as a hard pre-filter, sorts the survivors by
// descending score (ties keep original retrieval order), and truncates to
// limit. The input slice is not modified.
func Rank(results []search.Result, threshold float64, limit int) []search.Result {
	ranked := make([]search.Result, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
