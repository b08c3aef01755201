// Package httpapi exposes the search service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webcat/search-service/internal/domain"
	healthuc "github.com/webcat/search-service/internal/usecase/health"
	indexeruc "github.com/webcat/search-service/internal/usecase/indexer"
	searchuc "github.com/webcat/search-service/internal/usecase/search"
)

// errorCode is the machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeEmbeddingProvider  errorCode = "embedding_provider_error"
	codeBackendUnavailable errorCode = "search_backend_unavailable"
	codeInternalError      errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Searcher answers paginated hybrid queries.
type Searcher interface {
	Search(ctx context.Context, query string, page, limit int) (searchuc.Page, error)
}

// Indexer maintains item embeddings.
type Indexer interface {
	UpdateItemEmbeddings(ctx context.Context, itemIDs []int64) (int, error)
	ReindexAll(ctx context.Context) (indexeruc.Report, error)
}

// Embedder vectorizes ad-hoc text for POST /embed.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	indexer       Indexer
	embedder      Embedder
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, indexer Indexer, embedder Embedder, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		indexer:  indexer,
		embedder: embedder,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmptyText, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidItemIDs, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrSearchBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
	}
	return s
}

// RegisterRoutes mounts all handlers on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/search", s.handleSearch)
	r.Post("/embed", s.handleEmbed)
	r.Post("/update-embeddings", s.handleUpdateEmbeddings)
	r.Post("/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
}

// handleSearch handles GET /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "search query is required")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)

	result, err := s.search.Search(r.Context(), q, page, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if result.Results == nil {
		result.Results = []domain.SearchResult{}
	}

	writeJSON(w, http.StatusOK, result)
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
}

// handleEmbed handles POST /embed.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, embedResponse{
		Embedding:  result.Embedding,
		Dimensions: len(result.Embedding),
	})
}

type updateEmbeddingsRequest struct {
	ItemIDs []int64 `json:"itemIds"`
}

type updateEmbeddingsResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

// handleUpdateEmbeddings handles POST /update-embeddings.
func (s *Server) handleUpdateEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req updateEmbeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	updated, err := s.indexer.UpdateItemEmbeddings(r.Context(), req.ItemIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateEmbeddingsResponse{
		Message: "embeddings updated",
		Updated: updated,
	})
}

type reindexResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

// handleReindex handles POST /reindex.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	report, err := s.indexer.ReindexAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reindexResponse{
		Message:   "reindex complete",
		Processed: report.Processed,
		Errors:    report.Errors,
		Total:     report.Total,
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// queryInt reads an integer query parameter, falling back to def for
// missing or malformed values.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
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
		domain.ErrEmptyQuery,
		domain.ErrEmptyText,
		domain.ErrInvalidItemIDs,
		domain.ErrEmbeddingProviderError,
		domain.ErrMalformedResponse,
		domain.ErrSearchBackendUnavailable,
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
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
