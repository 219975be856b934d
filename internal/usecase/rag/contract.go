package rag

import (
	"context"

	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
)

// Repository defines the storage contract for the orchestrator.
type Repository interface {
	Create(ctx context.Context, doc *domdoc.Document, chunks []chunk.Chunk) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Update(ctx context.Context, prev, next *domdoc.Document) error
	Delete(ctx context.Context, id string) error
	ReplaceChunks(ctx context.Context, docID string, chunks []chunk.Chunk) error
	ChunksByDocument(ctx context.Context, docID string) ([]chunk.Chunk, error)
	QueryDocuments(ctx context.Context, scope search.Scope, f search.QueryFilters) (search.QueryPage, error)
	QueryChunks(ctx context.Context, scope search.Scope, f search.ChunkFilters) ([]chunk.Chunk, error)
}

// DocCache is the process-local document cache. Purely an optimization;
// every mutating operation invalidates its own entries.
type DocCache interface {
	Get(key string) (domdoc.Document, bool)
	Set(key string, doc domdoc.Document)
	Delete(key string)
}

// Quota gates expensive writes on the embedding token budget.
type Quota interface {
	Allow(ctx context.Context, estimatedTokens int64) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
