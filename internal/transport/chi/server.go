package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	domrec "github.com/kailas-cloud/shelf/internal/domain/recommendation"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
	"github.com/kailas-cloud/shelf/internal/domain/search/request"
	"github.com/kailas-cloud/shelf/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/shelf/internal/logger"
	healthuc "github.com/kailas-cloud/shelf/internal/usecase/health"
	"github.com/kailas-cloud/shelf/internal/version"
)

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       = "bad_request"
	ErrorCodeValidationFailed = "validation_failed"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeMethodNotAllowed = "method_not_allowed"
	ErrorCodeUpstream         = "upstream_unavailable"
	ErrorCodeTimeout          = "timeout"
	ErrorCodeInternal         = "internal_error"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-contract error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// Searcher runs product searches and owns the popularity and cache surfaces.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) result.Response
	PopularSearches(ctx context.Context, limit int) (popular.Response, error)
	ClearCache(ctx context.Context) result.CacheClearResponse
}

// Recommender produces personalized recommendations.
type Recommender interface {
	Recommend(ctx context.Context, userID string, history []string) (domrec.Response, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options configure request defaults.
type Options struct {
	DefaultPageSize     int
	MaxPageSize         int
	DefaultPopularLimit int
}

// Server serves the shelf HTTP API.
type Server struct {
	search        Searcher
	recs          Recommender
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, recs Recommender, health HealthChecker, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		recs:   recs,
		health: health,
		opts:   opts,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(domain.ErrUpstream, http.StatusServiceUnavailable, ErrorCodeUpstream),
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/search", s.Search)
	r.Get("/popular-searches", s.PopularSearches)
	r.Post("/cache/clear", s.ClearCache)
	r.Get("/recommendations/{user_id}", s.GetRecommendations)
	r.Post("/recommendations", s.PostRecommendations)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeParamError(w, err)
		return
	}

	req, err := s.searchRequest(&params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.search.Search(r.Context(), &req))
}

func (s *Server) searchRequest(params *SearchParams) (request.Request, error) {
	page := 1
	if params.Page != nil {
		page = *params.Page
	}
	pageSize := s.opts.DefaultPageSize
	if params.PageSize != nil {
		pageSize = *params.PageSize
	}
	if s.opts.MaxPageSize > 0 && pageSize > s.opts.MaxPageSize {
		return request.Request{}, domain.NewValidationError("page_size", "exceeds maximum")
	}

	filters, err := filtersFromParams(params)
	if err != nil {
		return request.Request{}, err
	}
	return request.New(params.Q, page, pageSize, filters)
}

func filtersFromParams(params *SearchParams) (filter.Expression, error) {
	var conds []filter.Condition

	matches := []struct {
		key   string
		value *string
	}{
		{filter.KeyCategory, params.Category},
		{filter.KeyStore, params.Store},
	}
	for _, m := range matches {
		if m.value == nil {
			continue
		}
		c, err := filter.NewMatch(m.key, *m.value)
		if err != nil {
			return filter.Expression{}, domain.NewValidationError(m.key, err.Error())
		}
		conds = append(conds, c)
	}

	if params.MinPrice != nil || params.MaxPrice != nil {
		rng, err := filter.NewRangeFilter(params.MinPrice, params.MaxPrice)
		if err != nil {
			return filter.Expression{}, domain.NewValidationError("price", err.Error())
		}
		c, err := filter.NewRange(filter.KeyPrice, rng)
		if err != nil {
			return filter.Expression{}, domain.NewValidationError("price", err.Error())
		}
		conds = append(conds, c)
	}

	expr, err := filter.NewExpression(conds...)
	if err != nil {
		return filter.Expression{}, domain.NewValidationError("filters", err.Error())
	}
	return expr, nil
}

// PopularSearches handles GET /popular-searches.
func (s *Server) PopularSearches(w http.ResponseWriter, r *http.Request) {
	params, err := bindPopularSearchesParams(r)
	if err != nil {
		writeParamError(w, err)
		return
	}

	limit := s.opts.DefaultPopularLimit
	if params.Limit != nil {
		limit = *params.Limit
	}

	resp, err := s.search.PopularSearches(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearCache handles POST /cache/clear. It always answers 200; a backend
// failure is reported as success=false in the body.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.search.ClearCache(r.Context()))
}

// GetRecommendations handles GET /recommendations/{user_id}.
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := bindUserID(r)
	if err != nil {
		writeParamError(w, err)
		return
	}
	params, err := bindRecommendationsParams(r)
	if err != nil {
		writeParamError(w, err)
		return
	}

	var history []string
	if params.History != nil {
		history = *params.History
	}
	s.recommend(w, r, userID, history)
}

// PostRecommendations handles POST /recommendations.
func (s *Server) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	var body RecommendationsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.recommend(w, r, body.UserID, body.History)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, userID string, history []string) {
	resp, err := s.recs.Recommend(r.Context(), userID, history)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
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
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeParamError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
}

// validationHandler reports the offending field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, ve.Field+" "+ve.Reason)
		return true
	}
	if errors.Is(err, domain.ErrValidation) {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, domain.ErrValidation.Error())
		return true
	}
	return false
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			logger.Debug("request rejected", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
