// Package embedding provides the deterministic placeholder embedder. It stands
// in for a real model: deterministic for a given input, NaN-free and
// unit-normalized, so cache keys and similarity tests behave, but it carries no
// semantic signal beyond "identical text scores 1.0".
package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kailas-cloud/knowbase/internal/domain"
)

// DefaultDimensions is the placeholder vector width, matching the common
// hosted-model default so a provider swap needs no migration.
const DefaultDimensions = 1536

// Local is a hash-seeded deterministic embedder.
type Local struct {
	dimensions int
}

var _ domain.Embedder = (*Local)(nil)

// NewLocal creates a local embedder. Non-positive dimensions fall back to the
// default.
func NewLocal(dimensions int) *Local {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Local{dimensions: dimensions}
}

// Dimensions returns the vector width.
func (l *Local) Dimensions() int { return l.dimensions }

// Embed derives a seed from an FNV-1a hash of the input, drives an LCG from it
// to fill the coordinates in [-1,1], then L2-normalizes. Token usage is the
// chars/4 estimate so quota accounting still exercises with this provider.
func (l *Local) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, l.dimensions)
	var norm float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// top 53 bits -> [0,1) -> [-1,1]
		v := float64(state>>11)/float64(1<<53)*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}

	tokens := (len(text) + 3) / 4
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

// HealthCheck always succeeds: the local embedder has no external dependency.
func (l *Local) HealthCheck(context.Context) error { return nil }
