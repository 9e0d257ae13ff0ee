package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blendex/internal/domain"
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/query"
	"github.com/kailas-cloud/blendex/internal/domain/record"
	"github.com/kailas-cloud/blendex/internal/logger"
	"github.com/kailas-cloud/blendex/internal/usecase/blend"
	healthuc "github.com/kailas-cloud/blendex/internal/usecase/health"
)

// blender is the consumer interface for the blending engine (ISP).
type blender interface {
	Search(ctx context.Context, q query.Query, offset, limit int, params query.Params) (*blend.Collection, error)
	Retrieve(ctx context.Context, id string, params query.Params) (record.Collection, error)
	RetrieveBatch(ctx context.Context, ids []string, params query.Params) (record.Collection, error)
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bound request sizes.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxBatchSize    int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the blended search API.
type Server struct {
	engine        blender
	health        healthChecker
	limits        Limits
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. Handlers log through the request-scoped logger.
func NewServer(engine blender, health healthChecker, limits Limits) *Server {
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = 20
	}
	if limits.MaxPageSize <= 0 {
		limits.MaxPageSize = 100
	}
	if limits.MaxBatchSize <= 0 {
		limits.MaxBatchSize = 100
	}
	s := &Server{
		engine: engine,
		health: health,
		limits: limits,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, ErrorCodeBackendUnavailable),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
		canceledHandler,
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Post("/records/batch", s.RetrieveBatch)
		r.Get("/records/{id}", s.Retrieve)
	})
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	offset := deref(params.Offset)
	limit := s.limits.DefaultPageSize
	if params.Limit != nil {
		limit = *params.Limit
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "offset must be non-negative")
		return
	}
	if limit < 0 || limit > s.limits.MaxPageSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("limit must be between 0 and %d", s.limits.MaxPageSize))
		return
	}

	q, err := params.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.engine.Search(ctx, q, offset, limit, backendParams(r.URL.Query()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, SearchResponse{
		Total:          res.Total(),
		Offset:         res.Offset(),
		Limit:          res.Limit(),
		PrimaryCount:   res.PrimaryCount(),
		SecondaryCount: res.SecondaryCount(),
		Records:        recordsToAPI(res.Records()),
		Facets:         facetsToAPI(res.Facets()),
	})
}

// Retrieve handles GET /api/v1/records/{id}.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid record id")
		return
	}

	res, err := s.engine.Retrieve(r.Context(), id, query.Params(r.URL.Query()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(res.Records) == 0 {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "record not found")
		return
	}

	writeJSON(w, http.StatusOK, recordToAPI(&res.Records[0]))
}

// RetrieveBatch handles POST /api/v1/records/batch.
func (s *Server) RetrieveBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.IDs) == 0 || len(req.IDs) > s.limits.MaxBatchSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("ids count must be between 1 and %d", s.limits.MaxBatchSize))
		return
	}
	for _, id := range req.IDs {
		if id == "" {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "ids must not be empty")
			return
		}
	}

	res, err := s.engine.RetrieveBatch(r.Context(), req.IDs, query.Params(r.URL.Query()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordListResponse{Records: recordsToAPI(res.Records)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidQuery,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrBackendUnavailable,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// canceledHandler maps a backend deadline to 504 and a client abort to 499.
func canceledHandler(w http.ResponseWriter, err error, _ string) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrorCodeBackendUnavailable, "backend timeout")
	case errors.Is(err, context.Canceled):
		writeError(w, 499, ErrorCodeBadRequest, "request canceled")
	default:
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	fields := []zap.Field{zap.Error(err)}
	var be *domain.BackendError
	if errors.As(err, &be) {
		fields = append(fields, zap.String("backend", be.Backend), zap.String("op", be.Op))
	}

	log.Warn("domain error", fields...)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", fields...)
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func recordToAPI(rec *record.Record) Record {
	return Record{
		ID:     rec.ID(),
		Title:  rec.Title(),
		Score:  rec.Score(),
		Source: string(rec.Source()),
		Fields: rec.Fields(),
	}
}

func recordsToAPI(recs []record.Record) []Record {
	out := make([]Record, len(recs))
	for i := range recs {
		out[i] = recordToAPI(&recs[i])
	}
	return out
}

func facetsToAPI(set facet.Set) map[string][]FacetCount {
	out := make(map[string][]FacetCount, len(set))
	for field, counts := range set {
		fc := make([]FacetCount, len(counts))
		for i, c := range counts {
			fc[i] = FacetCount{Value: c.Value, Count: c.Count}
		}
		out[field] = fc
	}
	return out
}
