package rag

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowbase/internal/chunker"
	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
)

// --- Mocks ---

type mockRepo struct {
	createErr     error
	createdDoc    *domdoc.Document
	createdChunks []chunk.Chunk

	getResult domdoc.Document
	getErr    error

	updateErr   error
	updatedNext *domdoc.Document

	deleteErr error
	deletedID string

	replaceErr     error
	replacedID     string
	replacedChunks []chunk.Chunk
	replaceCalls   int

	chunksByDoc    []chunk.Chunk
	chunksByDocErr error

	queryPage    search.QueryPage
	queryErr     error
	queryScope   search.Scope
	queryFilters search.QueryFilters

	chunkResults []chunk.Chunk
	chunkErr     error
	chunkScope   search.Scope
	chunkFilters search.ChunkFilters
}

func (m *mockRepo) Create(_ context.Context, doc *domdoc.Document, chunks []chunk.Chunk) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdDoc = doc
	m.createdChunks = chunks
	return nil
}

func (m *mockRepo) Get(_ context.Context, _ string) (domdoc.Document, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) Update(_ context.Context, _, next *domdoc.Document) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedNext = next
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func (m *mockRepo) ReplaceChunks(_ context.Context, docID string, chunks []chunk.Chunk) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replacedID = docID
	m.replacedChunks = chunks
	return nil
}

func (m *mockRepo) ChunksByDocument(_ context.Context, _ string) ([]chunk.Chunk, error) {
	return m.chunksByDoc, m.chunksByDocErr
}

func (m *mockRepo) QueryDocuments(
	_ context.Context, scope search.Scope, f search.QueryFilters,
) (search.QueryPage, error) {
	m.queryScope = scope
	m.queryFilters = f
	return m.queryPage, m.queryErr
}

func (m *mockRepo) QueryChunks(
	_ context.Context, scope search.Scope, f search.ChunkFilters,
) ([]chunk.Chunk, error) {
	m.chunkScope = scope
	m.chunkFilters = f
	return m.chunkResults, m.chunkErr
}

type mockCache struct {
	entries map[string]domdoc.Document
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domdoc.Document)}
}

func (m *mockCache) Get(key string) (domdoc.Document, bool) {
	d, ok := m.entries[key]
	return d, ok
}

func (m *mockCache) Set(key string, doc domdoc.Document) {
	m.entries[key] = doc
}

func (m *mockCache) Delete(key string) {
	delete(m.entries, key)
	m.deleted = append(m.deleted, key)
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

type mockQuota struct {
	err       error
	estimates []int64
}

func (m *mockQuota) Allow(_ context.Context, estimated int64) error {
	m.estimates = append(m.estimates, estimated)
	return m.err
}

// --- Helpers ---

const testDims = 4

func testVector() []float32 {
	return []float32{0.5, 0.5, 0.5, 0.5}
}

func newTestService(repo *mockRepo, c *mockCache, emb *mockEmbedder, q *mockQuota) *Service {
	return New(
		repo, c, emb, emb, q,
		chunker.New(chunker.Config{ChunkSize: 500, Overlap: 50}),
		testDims, zap.NewNop(),
	)
}

func makeDoc(t *testing.T, id, owner string, public bool) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "Title", "Paragraph A.\n\nParagraph B.", "note",
		[]string{"tag"}, nil, owner, "", public)
	if err != nil {
		t.Fatalf("domdoc.New: %v", err)
	}
	return doc
}

func makeChunk(t *testing.T, id, docID string, position int, vec []float32) chunk.Chunk {
	t.Helper()
	return chunk.New(id, docID, "chunk content", position, vec, chunk.Meta{
		DocType: "note", OwnerID: "u1",
	})
}

func contentChunk(id, docID, content string, score []float32) chunk.Chunk {
	return chunk.New(id, docID, content, 0, score, chunk.Meta{DocType: "note", OwnerID: "u1"})
}
