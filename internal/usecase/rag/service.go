// Package rag orchestrates the retrieval pipeline: document CRUD with
// automatic chunking and vectorization, access-scoped queries, similarity
// search over chunk candidates and token-bounded context assembly.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowbase/internal/access"
	"github.com/kailas-cloud/knowbase/internal/chunker"
	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
	"github.com/kailas-cloud/knowbase/internal/metrics"
	"github.com/kailas-cloud/knowbase/internal/similarity"
)

const (
	// DefaultMaxLimit caps the top-K a single search request may ask for.
	DefaultMaxLimit = 10
	// DefaultMaxCandidates bounds the chunk candidate window scored per search.
	DefaultMaxCandidates = 1000
)

// AddInput carries the caller-supplied fields of a new document.
type AddInput struct {
	Title    string
	Content  string
	DocType  string
	Tags     []string
	Metadata map[string]string
	OwnerID  string
	OrgID    string
	Public   bool
}

// Service orchestrates documents, chunks, embeddings and search.
type Service struct {
	repo          Repository
	cache         DocCache
	docEmbedder   Embedder
	queryEmbedder Embedder
	quota         Quota
	splitter      *chunker.Chunker
	dimensions    int
	maxLimit      int
	maxCandidates int
	logger        *zap.Logger
}

// New creates the orchestrator service.
func New(
	repo Repository, cache DocCache, docEmbedder, queryEmbedder Embedder,
	quota Quota, splitter *chunker.Chunker, dimensions int, logger *zap.Logger,
) *Service {
	return &Service{
		repo:          repo,
		cache:         cache,
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
		quota:         quota,
		splitter:      splitter,
		dimensions:    dimensions,
		maxLimit:      DefaultMaxLimit,
		maxCandidates: DefaultMaxCandidates,
		logger:        logger,
	}
}

// WithSearchBounds configures the result cap and the candidate window.
func (s *Service) WithSearchBounds(maxLimit, maxCandidates int) *Service {
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	if maxCandidates > 0 {
		s.maxCandidates = maxCandidates
	}
	return s
}

// AddDocument creates a document: assigns an ID, vectorizes the content,
// splits it into chunks with per-chunk embeddings, persists everything and
// warms the cache. An embedding failure aborts the write before any store
// mutation.
func (s *Service) AddDocument(ctx context.Context, in AddInput) (domdoc.Document, error) {
	doc, err := domdoc.New(
		uuid.NewString(), in.Title, in.Content, in.DocType,
		in.Tags, in.Metadata, in.OwnerID, in.OrgID, in.Public,
	)
	if err != nil {
		return domdoc.Document{}, err
	}

	// Document vector plus one vector per chunk, so roughly twice the content.
	estimated := int64(chunker.EstimateTokens(in.Content)) * 2
	if err := s.quota.Allow(ctx, estimated); err != nil {
		return domdoc.Document{}, err
	}

	result, err := s.docEmbedder.Embed(ctx, doc.Content())
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("vectorize document: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
	if err := s.checkDimensions(result.Embedding); err != nil {
		return domdoc.Document{}, err
	}
	doc = doc.WithVector(result.Embedding)

	chunks, err := s.buildChunks(ctx, &doc)
	if err != nil {
		return domdoc.Document{}, err
	}

	if err := s.repo.Create(ctx, &doc, chunks); err != nil {
		return domdoc.Document{}, fmt.Errorf("create document: %w", err)
	}

	s.cache.Set(doc.ID(), doc)
	return doc, nil
}

// GetDocument retrieves a document with visibility enforcement, cache first.
// Documents the requester cannot see map to domain.ErrNotFound, so callers
// cannot distinguish hidden from absent.
func (s *Service) GetDocument(ctx context.Context, id, requesterID string) (domdoc.Document, error) {
	if doc, ok := s.cache.Get(id); ok {
		if !access.CanView(doc.OwnerID(), doc.Public(), requesterID) {
			return domdoc.Document{}, domain.ErrNotFound
		}
		return doc, nil
	}

	doc, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domdoc.Document{}, domain.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Document read failed", zap.String("id", id), zap.Error(err))
		return domdoc.Document{}, fmt.Errorf("get document: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if !access.CanView(doc.OwnerID(), doc.Public(), requesterID) {
		return domdoc.Document{}, domain.ErrNotFound
	}

	s.cache.Set(id, doc)
	return doc, nil
}

// UpdateDocument applies a partial update, owner only. The ownership check
// fails closed: non-owners get domain.ErrNotFound and nothing is applied.
// A content change re-chunks and re-embeds; the old chunk set is replaced
// before the document record is rewritten, so the chunk count never doubles.
func (s *Service) UpdateDocument(
	ctx context.Context, id string, upd domdoc.Update, requesterID string,
) (domdoc.Document, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domdoc.Document{}, domain.ErrNotFound
		}
		return domdoc.Document{}, fmt.Errorf("load document: %w", err)
	}

	if !access.CanModify(current.OwnerID(), requesterID) {
		return domdoc.Document{}, domain.ErrNotFound
	}

	if upd.IsEmpty() {
		return current, nil
	}

	next, err := current.ApplyUpdate(upd)
	if err != nil {
		return domdoc.Document{}, err
	}

	if upd.HasContent() {
		estimated := int64(chunker.EstimateTokens(next.Content())) * 2
		if err := s.quota.Allow(ctx, estimated); err != nil {
			return domdoc.Document{}, err
		}

		result, err := s.docEmbedder.Embed(ctx, next.Content())
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("vectorize updated content: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
		if err := s.checkDimensions(result.Embedding); err != nil {
			return domdoc.Document{}, err
		}
		next = next.WithVector(result.Embedding)

		chunks, err := s.buildChunks(ctx, &next)
		if err != nil {
			return domdoc.Document{}, err
		}
		if err := s.repo.ReplaceChunks(ctx, id, chunks); err != nil {
			return domdoc.Document{}, fmt.Errorf("replace chunks: %w", err)
		}
	} else if chunkMetaChanged(&current, &next) {
		if err := s.retagChunks(ctx, &next); err != nil {
			return domdoc.Document{}, err
		}
	}

	if err := s.repo.Update(ctx, &current, &next); err != nil {
		return domdoc.Document{}, fmt.Errorf("update document: %w", err)
	}

	s.cache.Delete(id)
	s.cache.Set(id, next)
	return next, nil
}

// DeleteDocument removes a document and its whole chunk set, owner only.
// Not-found and access-denied both come back as (false, nil); only store
// failures surface as errors.
func (s *Service) DeleteDocument(ctx context.Context, id, requesterID string) (bool, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load document: %w", err)
	}

	if !access.CanModify(doc.OwnerID(), requesterID) {
		return false, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}

	s.cache.Delete(id)
	return true, nil
}

// QueryDocuments lists documents the requester may see, paginated. Embeddings
// are stripped from the page unless explicitly requested. A store failure
// returns domain.ErrStoreUnavailable so callers can tell "no matches" from
// "backend down".
func (s *Service) QueryDocuments(
	ctx context.Context, f search.QueryFilters, requesterID string,
) (search.QueryPage, error) {
	scope := search.Scope{OwnerID: requesterID, PublicOnly: f.PublicOnly}

	page, err := s.repo.QueryDocuments(ctx, scope, f)
	if err != nil {
		metrics.SearchDegradedTotal.WithLabelValues("query").Inc()
		s.logger.Error("Document query failed", zap.Error(err))
		return search.QueryPage{}, fmt.Errorf("query documents: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if !f.IncludeEmbeddings {
		for i := range page.Documents {
			page.Documents[i] = page.Documents[i].WithoutVector()
		}
	}
	return page, nil
}

// SimilaritySearch embeds the query, scores an access-scoped candidate chunk
// window and returns the ranked survivors. Backend and embedding failures
// return domain.ErrStoreUnavailable / the provider error; the transport layer
// degrades those to an empty result.
func (s *Service) SimilaritySearch(
	ctx context.Context, query string, opts search.Options, requesterID string,
) ([]search.Result, error) {
	opts, err := opts.Normalize(s.maxLimit)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrInvalidFilter)
	}

	result, err := s.queryEmbedder.Embed(ctx, query)
	if err != nil {
		metrics.SearchDegradedTotal.WithLabelValues("search").Inc()
		s.logger.Error("Query vectorization failed", zap.Error(err))
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	scope := search.Scope{
		OwnerID:       requesterID,
		PublicOnly:    opts.PublicOnly,
		IncludePublic: true,
	}
	candidates, err := s.repo.QueryChunks(ctx, scope, search.ChunkFilters{
		DocType: opts.DocType,
		Tags:    opts.Tags,
		Limit:   s.maxCandidates,
	})
	if err != nil {
		metrics.SearchDegradedTotal.WithLabelValues("search").Inc()
		s.logger.Error("Chunk candidate query failed", zap.Error(err))
		return nil, fmt.Errorf("query chunks: %w: %w", domain.ErrStoreUnavailable, err)
	}

	scored := make([]search.Result, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		score, err := similarity.Cosine(result.Embedding, c.Vector())
		if err != nil {
			// Dimension drift in stored data; skip the candidate, keep searching.
			s.logger.Warn("Skipping unscorable chunk",
				zap.String("chunk_id", c.ID()), zap.Error(err))
			continue
		}
		scored = append(scored, search.Result{Chunk: *c, Score: score})
	}

	ranked := similarity.Rank(scored, opts.Threshold, opts.Limit)

	if opts.IncludeDocuments {
		s.hydrateDocuments(ctx, ranked, requesterID)
	}
	return ranked, nil
}

// GenerateContext greedily concatenates chunk contents of ranked results into
// a token-bounded string. A chunk too large for the remaining budget is
// skipped, not fatal; later, smaller chunks may still fit. Never errors.
func (s *Service) GenerateContext(results []search.Result, maxTokens int) string {
	if maxTokens <= 0 || len(results) == 0 {
		return ""
	}

	var buf strings.Builder
	used := 0
	for i := range results {
		content := results[i].Chunk.Content()
		if content == "" {
			continue
		}
		cost := chunker.EstimateTokens(content)
		if used+cost > maxTokens {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(content)
		used += cost
	}
	return strings.TrimSpace(buf.String())
}

// buildChunks splits the document and embeds every piece. The chunk set
// carries a denormalized copy of the document's access fields so candidate
// scoping never needs the parent record.
func (s *Service) buildChunks(ctx context.Context, doc *domdoc.Document) ([]chunk.Chunk, error) {
	pieces := s.splitter.Split(doc.Content())
	if len(pieces) == 0 {
		return nil, nil
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	batch, err := domain.EmbedAll(ctx, s.docEmbedder, texts)
	if err != nil {
		return nil, fmt.Errorf("vectorize chunks: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(batch.TotalTokens)
	if len(batch.Embeddings) != len(pieces) {
		return nil, fmt.Errorf(
			"embedding count mismatch: got %d, want %d: %w",
			len(batch.Embeddings), len(pieces), domain.ErrEmbeddingProviderError,
		)
	}

	meta := chunkMeta(doc)
	chunks := make([]chunk.Chunk, len(pieces))
	for i, p := range pieces {
		if err := s.checkDimensions(batch.Embeddings[i]); err != nil {
			return nil, err
		}
		chunks[i] = chunk.New(uuid.NewString(), doc.ID(), p.Content, p.Position, batch.Embeddings[i], meta)
	}
	return chunks, nil
}

// retagChunks rewrites the chunk set with fresh metadata while keeping ids,
// contents and vectors. Runs when title, type, tags or visibility change
// without a content change.
func (s *Service) retagChunks(ctx context.Context, next *domdoc.Document) error {
	existing, err := s.repo.ChunksByDocument(ctx, next.ID())
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}

	meta := chunkMeta(next)
	updated := make([]chunk.Chunk, len(existing))
	for i := range existing {
		c := &existing[i]
		updated[i] = chunk.New(c.ID(), c.DocumentID(), c.Content(), c.Position(), c.Vector(), meta)
	}
	if err := s.repo.ReplaceChunks(ctx, next.ID(), updated); err != nil {
		return fmt.Errorf("retag chunks: %w", err)
	}
	return nil
}

// hydrateDocuments attaches parent documents to results. Failures leave the
// result without a document rather than failing the search.
func (s *Service) hydrateDocuments(ctx context.Context, results []search.Result, requesterID string) {
	byID := make(map[string]*domdoc.Document)
	for i := range results {
		docID := results[i].Chunk.DocumentID()
		doc, ok := byID[docID]
		if !ok {
			d, err := s.GetDocument(ctx, docID, requesterID)
			if err != nil {
				s.logger.Warn("Parent document hydration failed",
					zap.String("document_id", docID), zap.Error(err))
				byID[docID] = nil
				continue
			}
			stripped := d.WithoutVector()
			doc = &stripped
			byID[docID] = doc
		}
		results[i].Document = doc
	}
}

func (s *Service) checkDimensions(vec []float32) error {
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(vec), s.dimensions, domain.ErrVectorDimMismatch,
		)
	}
	return nil
}

func chunkMeta(doc *domdoc.Document) chunk.Meta {
	return chunk.Meta{
		Title:   doc.Title(),
		DocType: doc.DocType(),
		Tags:    doc.Tags(),
		OwnerID: doc.OwnerID(),
		OrgID:   doc.OrgID(),
		Public:  doc.Public(),
	}
}

func chunkMetaChanged(prev, next *domdoc.Document) bool {
	if prev.Title() != next.Title() || prev.DocType() != next.DocType() || prev.Public() != next.Public() {
		return true
	}
	pt, nt := prev.Tags(), next.Tags()
	if len(pt) != len(nt) {
		return true
	}
	for i := range pt {
		if pt[i] != nt[i] {
			return true
		}
	}
	return false
}
