// Package chunk holds the Chunk value object: a retrieval-sized fragment of a
// parent document, independently scorable against a query.
package chunk

// Meta is the parent document metadata denormalized onto every chunk so
// access scoping and filtering never need a join back to the document.
type Meta struct {
	Title   string
	DocType string
	Tags    []string
	OwnerID string
	OrgID   string
	Public  bool
}

// Chunk is a retrieval unit derived from exactly one document.
// It references the parent by ID and never owns its lifecycle.
type Chunk struct {
	id         string
	documentID string
	content    string
	position   int
	vector     []float32
	meta       Meta
}

// New creates a Chunk. Validation lives with the chunker that produces them;
// a chunk is internal output, never client input.
func New(id, documentID, content string, position int, vector []float32, meta Meta) Chunk {
	return Chunk{
		id:         id,
		documentID: documentID,
		content:    content,
		position:   position,
		vector:     vector,
		meta:       meta,
	}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// DocumentID returns the owning document identifier.
func (c *Chunk) DocumentID() string { return c.documentID }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Position returns the zero-based chunk order within the document.
func (c *Chunk) Position() int { return c.position }

// Vector returns the chunk embedding.
func (c *Chunk) Vector() []float32 { return c.vector }

// Meta returns the denormalized parent metadata.
func (c *Chunk) Meta() Meta { return c.meta }

// WithVector returns a copy with the given vector set.
func (c *Chunk) WithVector(v []float32) Chunk {
	cc := *c
	cc.vector = v
	return cc
}
