package domain

import "errors"

var (
	// ErrNotFound signals a missing document, or one the requester may not see.
	// The two cases are intentionally indistinguishable to callers.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied signals an ownership mismatch on a mutating operation.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidDocument signals a document that failed validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidFilter signals malformed query or search filters.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrVectorDimMismatch signals a vector dimension mismatch in similarity scoring.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	// Write paths surface it as retryable; read paths degrade to empty.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a persistence failure on a read path.
	// It lets in-process callers tell "no matches" apart from "backend down".
	ErrStoreUnavailable = errors.New("document store unavailable")
)
