// Package chi exposes the knowledge base over HTTP: document CRUD, listing,
// similarity search, context assembly, usage, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowbase/internal/domain"
	"github.com/kailas-cloud/knowbase/internal/domain/search"
	healthuc "github.com/kailas-cloud/knowbase/internal/usecase/health"
	raguc "github.com/kailas-cloud/knowbase/internal/usecase/rag"
	usageuc "github.com/kailas-cloud/knowbase/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers over the usecase services.
type Server struct {
	rag           *raguc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	rag *raguc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		rag:    rag,
		usage:  usage,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts every handler on the router. The API lives under /api/v1;
// health and metrics stay at the root so probes skip auth.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.CreateDocument)
		r.Get("/documents", s.QueryDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Patch("/documents/{id}", s.UpdateDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Post("/search", s.Search)
		r.Post("/context", s.GenerateContext)
		r.Get("/usage", s.GetUsage)
	})
}

// CreateDocument handles POST /api/v1/documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	requester := requesterID(r)
	if requester == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, requesterHeader+" header is required")
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.rag.AddDocument(ctx, raguc.AddInput{
		Title:    req.Title,
		Content:  req.Content,
		DocType:  req.DocumentType,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		OwnerID:  requester,
		OrgID:    req.OrgID,
		Public:   req.IsPublic,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("Location", fmt.Sprintf("/api/v1/documents/%s", doc.ID()))
	resp := documentToResponse(&doc)
	resp.Embedding = nil // never echo the vector on create
	writeJSON(w, http.StatusCreated, resp)
}

// GetDocument handles GET /api/v1/documents/{id}. Hidden and absent documents
// are indistinguishable: both are 404.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.rag.GetDocument(r.Context(), id, requesterID(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := documentToResponse(&doc)
	if r.URL.Query().Get("include_embedding") != "true" {
		resp.Embedding = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateDocument handles PATCH /api/v1/documents/{id}.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	requester := requesterID(r)
	if requester == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, requesterHeader+" header is required")
		return
	}

	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.rag.UpdateDocument(ctx, chi.URLParam(r, "id"), updateFromRequest(req), requester)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	resp := documentToResponse(&doc)
	resp.Embedding = nil
	writeJSON(w, http.StatusOK, resp)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}. Not-found and access
// denial both come back as deleted=false, never an error.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.rag.DeleteDocument(r.Context(), chi.URLParam(r, "id"), requesterID(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, deleteResponse{Deleted: deleted})
}

// QueryDocuments handles GET /api/v1/documents. A storage failure degrades to
// an empty page; the service has already logged and counted it.
func (s *Server) QueryDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := search.QueryFilters{
		DocType:           q.Get("document_type"),
		Tags:              splitCSV(q.Get("tags")),
		Limit:             intParam(q.Get("limit"), 20),
		Offset:            intParam(q.Get("offset"), 0),
		IncludeEmbeddings: q.Get("include_embeddings") == "true",
		PublicOnly:        q.Get("public_only") == "true",
	}

	page, err := s.rag.QueryDocuments(r.Context(), filters, requesterID(r))
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			writeJSON(w, http.StatusOK, documentListResponse{Items: []documentResponse{}})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(page.Documents))
	for i := range page.Documents {
		items[i] = documentToResponse(&page.Documents[i])
	}
	writeJSON(w, http.StatusOK, documentListResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
	})
}

// Search handles POST /api/v1/search. Backend and provider failures degrade
// to an empty result set; only malformed requests surface as errors.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.runSearch(ctx, req, requesterID(r))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		// Degraded read path: empty 200, never a crash.
		setEmbeddingHeaders(w, usage)
		writeJSON(w, http.StatusOK, searchResponse{Items: []searchResultItem{}})
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToItem(&results[i])
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// GenerateContext handles POST /api/v1/context: search then token-bounded
// context assembly. Shares search's degrade-to-empty semantics.
func (s *Server) GenerateContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.runSearch(ctx, searchRequest{
		Query:        req.Query,
		Limit:        req.Limit,
		DocumentType: req.DocumentType,
		Tags:         req.Tags,
		Threshold:    req.Threshold,
		PublicOnly:   req.PublicOnly,
	}, requesterID(r))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		setEmbeddingHeaders(w, usage)
		writeJSON(w, http.StatusOK, contextResponse{Context: "", Items: []searchResultItem{}})
		return
	}

	assembled := s.rag.GenerateContext(results, req.MaxTokens)

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToItem(&results[i])
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, contextResponse{Context: assembled, Items: items})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report := s.usage.GetReport(r.Context())
	writeJSON(w, http.StatusOK, usageToResponse(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) runSearch(
	ctx context.Context, req searchRequest, requester string,
) ([]search.Result, error) {
	opts := search.Options{
		Limit:            req.Limit,
		DocType:          req.DocumentType,
		Tags:             req.Tags,
		Threshold:        req.Threshold,
		IncludeDocuments: req.IncludeDocuments,
		PublicOnly:       req.PublicOnly,
	}
	return s.rag.SimilaritySearch(ctx, req.Query, opts, requester)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidDocument,
		domain.ErrInvalidFilter,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
