// Package search holds the transient request-scoped types of the retrieval
// path: search options, query filters and scored results.
package search

import (
	"fmt"

	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	"github.com/kailas-cloud/knowbase/internal/domain/document"
)

// DefaultLimit is the number of results returned when the caller does not ask
// for a specific count.
const DefaultLimit = 5

// Result pairs a chunk with its similarity score and, when hydration was
// requested, the parent document. Never persisted.
type Result struct {
	Chunk    chunk.Chunk
	Score    float64
	Document *document.Document
}

// Options control a similarity search request.
type Options struct {
	Limit            int
	DocType          string
	Tags             []string
	Threshold        float64
	IncludeDocuments bool
	PublicOnly       bool
}

// Normalize clamps the options into the engine's configured bounds.
// maxLimit caps the top-K a single request may ask for.
func (o Options) Normalize(maxLimit int) (Options, error) {
	if o.Limit < 0 {
		return Options{}, fmt.Errorf("limit must be non-negative: %w", domain.ErrInvalidFilter)
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return Options{}, fmt.Errorf("threshold must be in [0,1]: %w", domain.ErrInvalidFilter)
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if maxLimit > 0 && o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	return o, nil
}

// Scope restricts a query to what the requester may see.
// PublicOnly wins over OwnerID; IncludePublic widens an owner scope with
// public records (used by similarity search candidate resolution).
type Scope struct {
	OwnerID       string
	PublicOnly    bool
	IncludePublic bool
}

// ChunkFilters select chunk candidates for similarity scoring.
// Limit bounds the candidate window, not the result count.
type ChunkFilters struct {
	DocType string
	Tags    []string
	Limit   int
}

// QueryFilters select documents in a listing query.
type QueryFilters struct {
	DocType           string
	Tags              []string
	Limit             int
	Offset            int
	IncludeEmbeddings bool
	PublicOnly        bool
}

// QueryPage is one page of a document listing.
type QueryPage struct {
	Documents  []document.Document
	TotalCount int
	HasMore    bool
}
