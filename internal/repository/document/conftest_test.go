package document

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/kailas-cloud/knowbase/internal/db"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
)

// fakeStore is an in-memory stand-in for the db layer: hashes and sets backed
// by maps. Error injection per operation via fn fields.
type fakeStore struct {
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}

	hsetErr     func(key string) error
	hgetErr     func(key string) error
	delErr      func(key string) error
	smembersErr func(key string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if f.hsetErr != nil {
		if err := f.hsetErr(key); err != nil {
			return err
		}
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	f.hashes[key] = copied
	return nil
}

func (f *fakeStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := f.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if f.hgetErr != nil {
		if err := f.hgetErr(key); err != nil {
			return nil, err
		}
	}
	fields, ok := f.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied, nil
}

func (f *fakeStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		fields, err := f.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = fields
	}
	return out, nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	if f.delErr != nil {
		if err := f.delErr(key); err != nil {
			return err
		}
	}
	delete(f.hashes, key)
	delete(f.sets, key)
	return nil
}

func (f *fakeStore) DelMulti(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := f.Del(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) SAdd(_ context.Context, key string, members ...string) error {
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (f *fakeStore) SAddMulti(ctx context.Context, items []db.SetIndexItem) error {
	for _, it := range items {
		if err := f.SAdd(ctx, it.Key, it.Member); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) SRem(_ context.Context, key string, members ...string) error {
	set, ok := f.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	return nil
}

func (f *fakeStore) SRemMulti(ctx context.Context, items []db.SetIndexItem) error {
	for _, it := range items {
		if err := f.SRem(ctx, it.Key, it.Member); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) SMembers(_ context.Context, key string) ([]string, error) {
	if f.smembersErr != nil {
		if err := f.smembersErr(key); err != nil {
			return nil, err
		}
	}
	set := f.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (f *fakeStore) SInter(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	first, err := f.SMembers(ctx, keys[0])
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range first {
		in := true
		for _, key := range keys[1:] {
			if _, ok := f.sets[key][m]; !ok {
				in = false
				break
			}
		}
		if in {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) setMembers(key string) []string {
	members, _ := f.SMembers(context.Background(), key)
	return members
}

// --- Fixtures ---

func newDoc(t *testing.T, id, owner, docType string, tags []string, public bool) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "Title "+id, "Content of "+id, docType, tags, nil, owner, "", public)
	if err != nil {
		t.Fatalf("domdoc.New: %v", err)
	}
	return doc
}

func newChunkFor(doc *domdoc.Document, id string, position int) chunk.Chunk {
	return chunk.New(id, doc.ID(), "chunk content", position, []float32{0.1, 0.2}, chunk.Meta{
		Title:   doc.Title(),
		DocType: doc.DocType(),
		Tags:    doc.Tags(),
		OwnerID: doc.OwnerID(),
		OrgID:   doc.OrgID(),
		Public:  doc.Public(),
	})
}

func mustCreate(t *testing.T, repo *Repo, doc domdoc.Document, chunks []chunk.Chunk) {
	t.Helper()
	if err := repo.Create(context.Background(), &doc, chunks); err != nil {
		t.Fatalf("Create %s: %v", doc.ID(), err)
	}
}

// reconstructAt returns a document with fixed timestamps, for byte-stable
// serialization assertions.
func reconstructAt(doc domdoc.Document, at time.Time) domdoc.Document {
	return domdoc.Reconstruct(
		doc.ID(), doc.Title(), doc.Content(), doc.DocType(), doc.Tags(), doc.Metadata(),
		doc.OwnerID(), doc.OrgID(), doc.Public(), doc.Vector(), at, at,
	)
}
