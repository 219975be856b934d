// Package document holds the Document aggregate: a tenant-owned knowledge unit
// from which retrieval chunks are derived.
package document

import (
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/knowbase/internal/domain"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 524288 // 512KB

// Document is the document aggregate (immutable value object).
type Document struct {
	id        string
	title     string
	content   string
	docType   string
	tags      []string
	ownerID   string
	orgID     string
	public    bool
	vector    []float32
	metadata  map[string]string
	createdAt time.Time
	updatedAt time.Time
}

// New validates and creates a Document. The ID is assigned by the caller
// (the service generates one); title, content, docType and ownerID are required.
// Tags are deduplicated and sorted so storage index keys stay stable.
func New(
	id, title, content, docType string, tags []string,
	metadata map[string]string, ownerID, orgID string, public bool,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidDocument)
	}
	if title == "" {
		return Document{}, fmt.Errorf("title is required: %w", domain.ErrInvalidDocument)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required: %w", domain.ErrInvalidDocument)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrInvalidDocument)
	}
	if docType == "" {
		return Document{}, fmt.Errorf("document type is required: %w", domain.ErrInvalidDocument)
	}
	if ownerID == "" {
		return Document{}, fmt.Errorf("owner ID is required: %w", domain.ErrInvalidDocument)
	}

	now := time.Now().UTC()
	return Document{
		id:        id,
		title:     title,
		content:   content,
		docType:   docType,
		tags:      normalizeTags(tags),
		ownerID:   ownerID,
		orgID:     orgID,
		public:    public,
		metadata:  cloneStringMap(metadata),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, content, docType string, tags []string,
	metadata map[string]string, ownerID, orgID string, public bool,
	vector []float32, createdAt, updatedAt time.Time,
) Document {
	return Document{
		id: id, title: title, content: content, docType: docType,
		tags: tags, metadata: metadata, ownerID: ownerID, orgID: orgID,
		public: public, vector: vector, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the full text content.
func (d *Document) Content() string { return d.content }

// DocType returns the free-form classification tag ("faq", "manual", ...).
func (d *Document) DocType() string { return d.docType }

// Tags returns the document tags, deduplicated and sorted.
func (d *Document) Tags() []string { return d.tags }

// OwnerID returns the owning user identifier.
func (d *Document) OwnerID() string { return d.ownerID }

// OrgID returns the optional organization identifier.
func (d *Document) OrgID() string { return d.orgID }

// Public reports whether the document is visible beyond its owner.
func (d *Document) Public() bool { return d.public }

// Vector returns the full-document embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// Metadata returns the open metadata map.
func (d *Document) Metadata() map[string]string { return d.metadata }

// CreatedAt returns the creation timestamp (UTC).
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last-update timestamp (UTC).
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	c := *d
	c.vector = v
	return c
}

// WithoutVector returns a copy with the embedding stripped (payload reduction).
func (d *Document) WithoutVector() Document {
	c := *d
	c.vector = nil
	return c
}

// ApplyUpdate returns a copy with the non-nil fields of u applied and
// updatedAt advanced. The ID, owner and creation timestamp never change.
func (d *Document) ApplyUpdate(u Update) (Document, error) {
	c := *d
	if u.Title != nil {
		if *u.Title == "" {
			return Document{}, fmt.Errorf("title cannot be empty: %w", domain.ErrInvalidDocument)
		}
		c.title = *u.Title
	}
	if u.Content != nil {
		if *u.Content == "" {
			return Document{}, fmt.Errorf("content cannot be empty: %w", domain.ErrInvalidDocument)
		}
		if len(*u.Content) > MaxContentSize {
			return Document{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrInvalidDocument)
		}
		c.content = *u.Content
	}
	if u.DocType != nil {
		if *u.DocType == "" {
			return Document{}, fmt.Errorf("document type cannot be empty: %w", domain.ErrInvalidDocument)
		}
		c.docType = *u.DocType
	}
	if u.Tags != nil {
		c.tags = normalizeTags(*u.Tags)
	}
	if u.Metadata != nil {
		c.metadata = cloneStringMap(*u.Metadata)
	}
	if u.Public != nil {
		c.public = *u.Public
	}
	c.updatedAt = time.Now().UTC()
	return c, nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
