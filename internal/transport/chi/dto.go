package chi

import (
	"strings"
	"time"

	domdoc "github.com/kailas-cloud/knowbase/internal/domain/document"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
	"github.com/kailas-cloud/knowbase/internal/usecase/usage"
)

// errorCode identifies an API error class in the error envelope.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeUnauthorized      errorCode = "unauthorized"
	codeValidationFailed  errorCode = "validation_failed"
	codeNotFound          errorCode = "document_not_found"
	codeQuotaExceeded     errorCode = "embedding_quota_exceeded"
	codeProviderError     errorCode = "embedding_provider_error"
	codeStoreUnavailable  errorCode = "store_unavailable"
	codeVectorDimMismatch errorCode = "vector_dim_mismatch"
	codeInternalError     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type createDocumentRequest struct {
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	DocumentType string            `json:"document_type"`
	Tags         []string          `json:"tags,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	OrgID        string            `json:"org_id,omitempty"`
	IsPublic     bool              `json:"is_public,omitempty"`
}

type updateDocumentRequest struct {
	Title        *string            `json:"title,omitempty"`
	Content      *string            `json:"content,omitempty"`
	DocumentType *string            `json:"document_type,omitempty"`
	Tags         *[]string          `json:"tags,omitempty"`
	Metadata     *map[string]string `json:"metadata,omitempty"`
	IsPublic     *bool              `json:"is_public,omitempty"`
}

type documentResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	DocumentType string            `json:"document_type"`
	Tags         []string          `json:"tags,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	OwnerID      string            `json:"owner_id"`
	OrgID        string            `json:"org_id,omitempty"`
	IsPublic     bool              `json:"is_public"`
	Embedding    []float32         `json:"embedding,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type documentListResponse struct {
	Items      []documentResponse `json:"items"`
	TotalCount int                `json:"total_count"`
	HasMore    bool               `json:"has_more"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type searchRequest struct {
	Query            string   `json:"query"`
	Limit            int      `json:"limit,omitempty"`
	DocumentType     string   `json:"document_type,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Threshold        float64  `json:"threshold,omitempty"`
	IncludeDocuments bool     `json:"include_documents,omitempty"`
	PublicOnly       bool     `json:"public_only,omitempty"`
}

type searchResultItem struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Position   int               `json:"position"`
	Score      float64           `json:"score"`
	Document   *documentResponse `json:"document,omitempty"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

type contextRequest struct {
	Query        string   `json:"query"`
	MaxTokens    int      `json:"max_tokens"`
	Limit        int      `json:"limit,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
	PublicOnly   bool     `json:"public_only,omitempty"`
}

type contextResponse struct {
	Context string             `json:"context"`
	Items   []searchResultItem `json:"items"`
}

type budgetWindow struct {
	Limit     int64     `json:"limit"` // 0 = unlimited
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"` // -1 = unlimited
	ResetsAt  time.Time `json:"resets_at"`
}

type usageResponse struct {
	Daily     budgetWindow `json:"daily"`
	Monthly   budgetWindow `json:"monthly"`
	Exhausted bool         `json:"exhausted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func documentToResponse(doc *domdoc.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID(),
		Title:        doc.Title(),
		Content:      doc.Content(),
		DocumentType: doc.DocType(),
		Tags:         doc.Tags(),
		Metadata:     doc.Metadata(),
		OwnerID:      doc.OwnerID(),
		OrgID:        doc.OrgID(),
		IsPublic:     doc.Public(),
		Embedding:    doc.Vector(),
		CreatedAt:    doc.CreatedAt(),
		UpdatedAt:    doc.UpdatedAt(),
	}
}

func updateFromRequest(req updateDocumentRequest) domdoc.Update {
	return domdoc.Update{
		Title:    req.Title,
		Content:  req.Content,
		DocType:  req.DocumentType,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Public:   req.IsPublic,
	}
}

func searchResultToItem(res *search.Result) searchResultItem {
	item := searchResultItem{
		ChunkID:    res.Chunk.ID(),
		DocumentID: res.Chunk.DocumentID(),
		Content:    res.Chunk.Content(),
		Position:   res.Chunk.Position(),
		Score:      res.Score,
	}
	if res.Document != nil {
		doc := documentToResponse(res.Document)
		item.Document = &doc
	}
	return item
}

func usageToResponse(report usage.Report) usageResponse {
	return usageResponse{
		Daily: budgetWindow{
			Limit:     report.Budget.DailyLimit,
			Used:      report.Budget.DailyUsed,
			Remaining: report.Budget.DailyRemaining,
			ResetsAt:  report.DailyResetsAt,
		},
		Monthly: budgetWindow{
			Limit:     report.Budget.MonthlyLimit,
			Used:      report.Budget.MonthlyUsed,
			Remaining: report.Budget.MonthlyRemaining,
			ResetsAt:  report.MonthlyResetsAt,
		},
		Exhausted: report.Budget.Exhausted,
	}
}

// splitCSV parses a comma-separated query parameter into trimmed values.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
