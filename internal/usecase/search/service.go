// Package search orchestrates product search: cache, retrieval, ranking,
// pagination, inspiration and popularity tracking.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	"github.com/kailas-cloud/shelf/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelf/internal/domain/search/request"
	"github.com/kailas-cloud/shelf/internal/domain/search/result"
	"github.com/kailas-cloud/shelf/internal/repository/resultcache"
)

// Stage labels for duration metrics.
const (
	stageEmbed       = "embed"
	stageRetrieve    = "retrieve"
	stageScore       = "score"
	stagePaginate    = "paginate"
	stageInspiration = "inspiration"
	stagePopularity  = "popularity"
	stageTotal       = "total"
)

// ClearedMessage is reported after a successful cache clear.
const ClearedMessage = "Cache cleared successfully"

// Options tune the orchestrator.
type Options struct {
	CandidatePool    int
	InspirationLimit int
	CacheTTL         time.Duration
	Timeout          time.Duration
}

// Metrics holds the collectors the orchestrator reports to. Nil fields are skipped.
type Metrics struct {
	StageDuration *prometheus.HistogramVec // label: stage
	Requests      *prometheus.CounterVec   // label: outcome
}

// Service runs searches.
type Service struct {
	catalog    Catalog
	embed      Embedder
	ranker     Ranker
	cache      ResultCache
	popularity Popularity
	opts       Options
	metrics    Metrics
	logger     *zap.Logger
}

// New creates a search service.
func New(
	catalog Catalog,
	embed Embedder,
	ranker Ranker,
	cache ResultCache,
	popularity Popularity,
	opts Options,
	metrics Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		catalog:    catalog,
		embed:      embed,
		ranker:     ranker,
		cache:      cache,
		popularity: popularity,
		opts:       opts,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search answers a validated request. Failures never surface as errors: the
// response carries success=false, no products and zeroed pagination.
func (s *Service) Search(ctx context.Context, req *request.Request) result.Response {
	start := time.Now()
	defer s.observe(stageTotal, start)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	resp, hit, err := resultcache.Load(ctx, s.cache, resultcache.NamespaceSearch, req.Fingerprint(), s.opts.CacheTTL,
		func(ctx context.Context) (result.Response, error) {
			return s.compute(ctx, req)
		})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		s.logger.Error("Search failed", zap.String("query", req.Query()), zap.Error(err))
		s.count("failed")
		return result.Failed(req.Query())
	}

	if hit {
		s.count("hit")
	} else {
		s.count("miss")
	}
	// the cached entry may have been produced for a query differing in case or spacing
	resp.Query = req.Query()
	return resp
}

// compute runs the cache-miss path. Only a fully successful response is returned
// without error and therefore stored.
func (s *Service) compute(ctx context.Context, req *request.Request) (result.Response, error) {
	t := time.Now()
	emb, err := s.embed.Embed(ctx, req.Query())
	s.observe(stageEmbed, t)
	if err != nil {
		return result.Response{}, fmt.Errorf("vectorize query: %w", err)
	}

	t = time.Now()
	candidates, err := s.catalog.SearchProducts(ctx, emb.Embedding, req.Filters(), s.opts.CandidatePool)
	s.observe(stageRetrieve, t)
	if err != nil {
		return result.Response{}, fmt.Errorf("retrieve candidates: %w", err)
	}

	t = time.Now()
	ranked := s.ranker.Rank(req.Query(), candidates)
	s.observe(stageScore, t)

	t = time.Now()
	page, pg, err := pagination.Paginate(ranked, req.Page(), req.PageSize())
	s.observe(stagePaginate, t)
	if err != nil {
		return result.Response{}, fmt.Errorf("paginate: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return result.Response{}, fmt.Errorf("search aborted: %w", err)
	}

	resp := result.Response{
		Success:    true,
		Query:      req.Query(),
		Results:    result.Results{Product: page},
		Pagination: pg,
	}

	if req.Page() == 1 && s.opts.InspirationLimit > 0 {
		resp.Results.SuperInspiration = s.inspirations(ctx, req.Query())
	}

	s.recordPopularity(ctx, req.Query())
	return resp, nil
}

func (s *Service) inspirations(ctx context.Context, query string) []inspiration.Document {
	t := time.Now()
	defer s.observe(stageInspiration, t)

	docs, err := s.catalog.SearchInspirations(ctx, query, s.opts.InspirationLimit)
	if err != nil {
		s.logger.Warn("Inspiration search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	docs = inspiration.Rank(docs)
	if len(docs) > s.opts.InspirationLimit {
		docs = docs[:s.opts.InspirationLimit]
	}
	return docs
}

func (s *Service) recordPopularity(ctx context.Context, query string) {
	t := time.Now()
	defer s.observe(stagePopularity, t)

	if err := s.popularity.Record(ctx, query); err != nil {
		s.logger.Warn("Failed to record search term", zap.String("query", query), zap.Error(err))
	}
}

// PopularSearches returns the most used terms. Only validation failures are errors.
func (s *Service) PopularSearches(ctx context.Context, limit int) (popular.Response, error) {
	top, err := s.popularity.Top(ctx, limit)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return popular.Response{}, err
		}
		s.logger.Error("Popular searches failed", zap.Error(err))
		return popular.Response{Success: false, Results: []popular.Search{}}, nil
	}
	if top == nil {
		top = []popular.Search{}
	}
	return popular.Response{Success: true, Results: top}, nil
}

// ClearCache drops every cached response and resets popularity counters.
// Success is false with a failure message when either backend call fails;
// the call itself never errors.
func (s *Service) ClearCache(ctx context.Context) result.CacheClearResponse {
	n, err := s.cache.Clear(ctx)
	if err != nil {
		s.logger.Error("Cache clear failed", zap.Error(err))
		return result.CacheClearResponse{Success: false, Message: "Failed to clear cache"}
	}
	if err := s.popularity.Reset(ctx); err != nil {
		s.logger.Error("Popularity reset failed", zap.Error(err))
		return result.CacheClearResponse{Success: false, Message: "Failed to reset popular searches"}
	}
	s.logger.Info("Cache cleared", zap.Int("entries", n))
	return result.CacheClearResponse{Success: true, Message: ClearedMessage}
}

func (s *Service) observe(stage string, start time.Time) {
	if s.metrics.StageDuration != nil {
		s.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) count(outcome string) {
	if s.metrics.Requests != nil {
		s.metrics.Requests.WithLabelValues(outcome).Inc()
	}
}
