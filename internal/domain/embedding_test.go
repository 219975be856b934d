package domain

import (
	"context"
	"errors"
	"testing"
)

type singleEmbedder struct {
	texts []string
	err   error
}

func (e *singleEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

type batchEmbedder struct {
	singleEmbedder
	batches [][]string
}

func (e *batchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	e.batches = append(e.batches, texts)
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i)}
	}
	return BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

func TestEmbedAll_PrefersBatch(t *testing.T) {
	e := &batchEmbedder{}

	res, err := EmbedAll(context.Background(), e, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.batches) != 1 || len(e.texts) != 0 {
		t.Error("batch path not taken")
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 2 {
		t.Errorf("result = %d embeddings, %d tokens", len(res.Embeddings), res.TotalTokens)
	}
}

func TestEmbedAll_FallsBackToSequential(t *testing.T) {
	e := &singleEmbedder{}

	res, err := EmbedAll(context.Background(), e, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.texts) != 3 {
		t.Errorf("fallback made %d calls, want 3", len(e.texts))
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 3 {
		t.Errorf("result = %d embeddings, %d tokens", len(res.Embeddings), res.TotalTokens)
	}
}

func TestEmbedAll_EmptyInput(t *testing.T) {
	e := &singleEmbedder{}

	res, err := EmbedAll(context.Background(), e, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 || len(e.texts) != 0 {
		t.Error("empty input must not reach the embedder")
	}
}

func TestBatchFallback_FirstErrorAborts(t *testing.T) {
	e := &singleEmbedder{err: ErrEmbeddingProviderError}

	_, err := BatchFallback(context.Background(), e, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(e.texts) != 1 {
		t.Errorf("made %d calls after failure, want 1", len(e.texts))
	}
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &singleEmbedder{}
	e := NewInstructionEmbedder(inner, "query: ")

	if _, err := e.Embed(context.Background(), "find docs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "query: find docs" {
		t.Errorf("inner saw %v", inner.texts)
	}
}

func TestInstructionEmbedder_BatchPrefixesEachText(t *testing.T) {
	inner := &batchEmbedder{}
	e := NewInstructionEmbedder(inner, "passage: ")

	if _, err := e.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 {
		t.Fatalf("batches = %v", inner.batches)
	}
	got := inner.batches[0]
	if got[0] != "passage: a" || got[1] != "passage: b" {
		t.Errorf("prefixed texts = %v", got)
	}
}

func TestInstructionEmbedder_BatchFallback(t *testing.T) {
	inner := &singleEmbedder{}
	e := NewInstructionEmbedder(inner, "passage: ")

	res, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("got %d embeddings", len(res.Embeddings))
	}
	if len(inner.texts) != 2 || inner.texts[0] != "passage: a" {
		t.Errorf("inner saw %v", inner.texts)
	}
}
