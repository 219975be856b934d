// Package document implements the document store facade on the db primitives:
// hash records for documents and chunks, set-based secondary indexes for
// filtered queries, and cascade deletion of a document's chunk set.
package document

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/knowbase/internal/db"
	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
)

// store is the consumer interface for document storage (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SAddMulti(ctx context.Context, items []db.SetIndexItem) error
	SRem(ctx context.Context, key string, members ...string) error
	SRemMulti(ctx context.Context, items []db.SetIndexItem) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
}

// Repo implements the document store facade.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create persists a document together with its full chunk set and all
// secondary index memberships. Chunk hashes are written pipelined.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document, chunks []chunk.Chunk) error {
	fields, err := docToFields(doc)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	if err := r.store.HSet(ctx, docKey(doc.ID()), fields); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	if err := r.store.SAddMulti(ctx, docIndexItems(doc)); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	if err := r.insertChunks(ctx, doc.ID(), chunks); err != nil {
		return err
	}
	return nil
}

// Get retrieves a document by ID. Missing documents map to domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	fields, err := r.store.HGetAll(ctx, docKey(id))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	if len(fields) == 0 {
		return domdoc.Document{}, domain.ErrNotFound
	}
	doc, err := docFromFields(id, fields)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hydrate document %s: %w", id, err)
	}
	return doc, nil
}

// Update rewrites a document's hash and reconciles secondary index
// memberships against the previous version.
func (r *Repo) Update(ctx context.Context, prev, next *domdoc.Document) error {
	fields, err := docToFields(next)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	if err := r.store.HSet(ctx, docKey(next.ID()), fields); err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	removed, added := indexDelta(docIndexItems(prev), docIndexItems(next))
	if err := r.store.SRemMulti(ctx, removed); err != nil {
		return fmt.Errorf("deindex document: %w", err)
	}
	if err := r.store.SAddMulti(ctx, added); err != nil {
		return fmt.Errorf("reindex document: %w", err)
	}
	return nil
}

// Delete removes a document, all of its chunks and every index membership.
// Chunks go first so a failure mid-way cannot leave orphaned chunks behind a
// missing document as a steady state.
func (r *Repo) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := r.removeChunks(ctx, id); err != nil {
		return err
	}
	if err := r.store.SRemMulti(ctx, docIndexItems(&doc)); err != nil {
		return fmt.Errorf("deindex document: %w", err)
	}
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ReplaceChunks regenerates the chunk set of a document. The old chunks are
// fully removed before any new chunk is inserted, so old and new sets never
// coexist for concurrent readers.
func (r *Repo) ReplaceChunks(ctx context.Context, docID string, chunks []chunk.Chunk) error {
	if err := r.removeChunks(ctx, docID); err != nil {
		return err
	}
	return r.insertChunks(ctx, docID, chunks)
}

// ChunksByDocument returns all chunks of a document ordered by position.
func (r *Repo) ChunksByDocument(ctx context.Context, docID string) ([]chunk.Chunk, error) {
	ids, err := r.store.SMembers(ctx, docChunksKey(docID))
	if err != nil {
		return nil, fmt.Errorf("list document chunks: %w", err)
	}
	chunks, err := r.fetchChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position() < chunks[j].Position() })
	return chunks, nil
}

// QueryDocuments returns one page of documents matching the scope and
// filters, with the total match count and a has-more flag.
func (r *Repo) QueryDocuments(
	ctx context.Context, scope search.Scope, f search.QueryFilters,
) (search.QueryPage, error) {
	ids, err := r.resolveIDs(ctx, docBases(scope), docTypeKey, docTagKey, f.DocType, f.Tags)
	if err != nil {
		return search.QueryPage{}, err
	}

	total := len(ids)
	offset := f.Offset
	if offset > total {
		offset = total
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < end {
		end = offset + f.Limit
	}
	page := ids[offset:end]

	keys := make([]string, len(page))
	for i, id := range page {
		keys[i] = docKey(id)
	}
	records, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return search.QueryPage{}, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(page))
	for i, fields := range records {
		if len(fields) == 0 {
			continue // deleted between index read and fetch
		}
		doc, err := docFromFields(page[i], fields)
		if err != nil {
			return search.QueryPage{}, fmt.Errorf("hydrate document %s: %w", page[i], err)
		}
		docs = append(docs, doc)
	}

	return search.QueryPage{
		Documents:  docs,
		TotalCount: total,
		HasMore:    end < total,
	}, nil
}

// QueryChunks resolves a bounded chunk candidate set for similarity scoring.
// The limit caps the window; selection below the cap is deterministic (sorted
// by id), not relevance-ordered; scoring happens above this layer.
func (r *Repo) QueryChunks(ctx context.Context, scope search.Scope, f search.ChunkFilters) ([]chunk.Chunk, error) {
	ids, err := r.resolveIDs(ctx, chunkBases(scope), chunkTypeKey, chunkTagKey, f.DocType, f.Tags)
	if err != nil {
		return nil, err
	}
	if f.Limit > 0 && len(ids) > f.Limit {
		ids = ids[:f.Limit]
	}
	return r.fetchChunks(ctx, ids)
}

func (r *Repo) insertChunks(ctx context.Context, docID string, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	hashes := make([]db.HashSetItem, 0, len(chunks))
	var indexItems []db.SetIndexItem
	members := make([]string, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		fields, err := chunkToFields(c)
		if err != nil {
			return fmt.Errorf("serialize chunk %s: %w", c.ID(), err)
		}
		hashes = append(hashes, db.HashSetItem{Key: chunkKey(c.ID()), Fields: fields})
		indexItems = append(indexItems, chunkIndexItems(c)...)
		members = append(members, c.ID())
	}

	if err := r.store.HSetMulti(ctx, hashes); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	if err := r.store.SAdd(ctx, docChunksKey(docID), members...); err != nil {
		return fmt.Errorf("track chunks: %w", err)
	}
	if err := r.store.SAddMulti(ctx, indexItems); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

func (r *Repo) removeChunks(ctx context.Context, docID string) error {
	old, err := r.ChunksByDocument(ctx, docID)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}

	keys := make([]string, 0, len(old))
	var indexItems []db.SetIndexItem
	for i := range old {
		c := &old[i]
		keys = append(keys, chunkKey(c.ID()))
		indexItems = append(indexItems, chunkIndexItems(c)...)
	}

	if err := r.store.SRemMulti(ctx, indexItems); err != nil {
		return fmt.Errorf("deindex chunks: %w", err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := r.store.Del(ctx, docChunksKey(docID)); err != nil {
		return fmt.Errorf("untrack chunks: %w", err)
	}
	return nil
}

func (r *Repo) fetchChunks(ctx context.Context, ids []string) ([]chunk.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chunkKey(id)
	}
	records, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	chunks := make([]chunk.Chunk, 0, len(ids))
	for i, fields := range records {
		if len(fields) == 0 {
			continue
		}
		c, err := chunkFromFields(ids[i], fields)
		if err != nil {
			return nil, fmt.Errorf("hydrate chunk %s: %w", ids[i], err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// resolveIDs intersects each base (access) set with the optional type and tag
// index sets. Multiple tags union ("tag is one of"); multiple bases union.
// The merged result is sorted for deterministic pagination.
func (r *Repo) resolveIDs(
	ctx context.Context, bases []string,
	typeKey, tagKey func(string) string,
	docType string, tags []string,
) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	for _, base := range bases {
		keysets := [][]string{{base}}
		if len(tags) > 0 {
			keysets = keysets[:0]
			for _, tag := range tags {
				keysets = append(keysets, []string{base, tagKey(tag)})
			}
		}
		for _, keys := range keysets {
			if docType != "" {
				keys = append(keys, typeKey(docType))
			}
			members, err := r.intersect(ctx, keys)
			if err != nil {
				return nil, err
			}
			for _, id := range members {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	sort.Strings(ids)
	return ids, nil
}

func (r *Repo) intersect(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 1 {
		members, err := r.store.SMembers(ctx, keys[0])
		if err != nil {
			return nil, fmt.Errorf("read index %s: %w", keys[0], err)
		}
		return members, nil
	}
	members, err := r.store.SInter(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("intersect indexes: %w", err)
	}
	return members, nil
}

func docBases(scope search.Scope) []string {
	if scope.PublicOnly || scope.OwnerID == "" {
		return []string{docPublicKey()}
	}
	bases := []string{docOwnerKey(scope.OwnerID)}
	if scope.IncludePublic {
		bases = append(bases, docPublicKey())
	}
	return bases
}

func chunkBases(scope search.Scope) []string {
	if scope.PublicOnly || scope.OwnerID == "" {
		return []string{chunkPublicKey()}
	}
	bases := []string{chunkOwnerKey(scope.OwnerID)}
	if scope.IncludePublic {
		bases = append(bases, chunkPublicKey())
	}
	return bases
}

func docIndexItems(doc *domdoc.Document) []db.SetIndexItem {
	items := []db.SetIndexItem{
		{Key: docOwnerKey(doc.OwnerID()), Member: doc.ID()},
		{Key: docTypeKey(doc.DocType()), Member: doc.ID()},
	}
	if doc.Public() {
		items = append(items, db.SetIndexItem{Key: docPublicKey(), Member: doc.ID()})
	}
	for _, tag := range doc.Tags() {
		items = append(items, db.SetIndexItem{Key: docTagKey(tag), Member: doc.ID()})
	}
	return items
}

func chunkIndexItems(c *chunk.Chunk) []db.SetIndexItem {
	meta := c.Meta()
	items := []db.SetIndexItem{
		{Key: chunkOwnerKey(meta.OwnerID), Member: c.ID()},
		{Key: chunkTypeKey(meta.DocType), Member: c.ID()},
	}
	if meta.Public {
		items = append(items, db.SetIndexItem{Key: chunkPublicKey(), Member: c.ID()})
	}
	for _, tag := range meta.Tags {
		items = append(items, db.SetIndexItem{Key: chunkTagKey(tag), Member: c.ID()})
	}
	return items
}

// indexDelta splits prev/next index memberships into removals and additions.
func indexDelta(prev, next []db.SetIndexItem) (removed, added []db.SetIndexItem) {
	prevSet := make(map[db.SetIndexItem]struct{}, len(prev))
	for _, it := range prev {
		prevSet[it] = struct{}{}
	}
	nextSet := make(map[db.SetIndexItem]struct{}, len(next))
	for _, it := range next {
		nextSet[it] = struct{}{}
	}
	for _, it := range prev {
		if _, ok := nextSet[it]; !ok {
			removed = append(removed, it)
		}
	}
	for _, it := range next {
		if _, ok := prevSet[it]; !ok {
			added = append(added, it)
		}
	}
	return removed, added
}
