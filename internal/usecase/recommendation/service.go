// Package recommendation builds personalized product recommendations.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	domrec "github.com/kailas-cloud/shelf/internal/domain/recommendation"
	"github.com/kailas-cloud/shelf/internal/repository/resultcache"
)

// Options tune the engine.
type Options struct {
	HistoryLimit int
	Limit        int
	CacheTTL     time.Duration
	Timeout      time.Duration
}

// Engine picks a strategy per request and caches its responses.
type Engine struct {
	catalog  Catalog
	primary  Strategy
	fallback Strategy
	cache    ResultCache
	opts     Options
	total    *prometheus.CounterVec
	logger   *zap.Logger
}

// New creates a recommendation engine. total carries label "source"; nil disables counting.
func New(
	catalog Catalog,
	primary, fallback Strategy,
	cache ResultCache,
	opts Options,
	total *prometheus.CounterVec,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		catalog:  catalog,
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		opts:     opts,
		total:    total,
		logger:   logger,
	}
}

// Recommend returns recommendations for userID given history (most recent first).
// Only validation failures are returned as errors; anything else yields a
// response with success=false.
func (e *Engine) Recommend(ctx context.Context, userID string, history []string) (domrec.Response, error) {
	req, err := domrec.NewRequest(userID, history)
	if err != nil {
		return domrec.Response{}, err
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	resp, hit, err := resultcache.Load(ctx, e.cache, resultcache.NamespaceRecs,
		req.Fingerprint(e.opts.HistoryLimit), e.opts.CacheTTL,
		func(ctx context.Context) (domrec.Response, error) {
			return e.compute(ctx, &req)
		})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		e.logger.Error("Recommendation failed", zap.String("user_id", req.UserID()), zap.Error(err))
		e.inc("failed")
		return domrec.Failed(req.UserID()), nil
	}

	if hit {
		e.logger.Debug("Recommendation cache hit", zap.String("user_id", req.UserID()))
	}
	e.inc(string(resp.Source))
	return resp, nil
}

func (e *Engine) compute(ctx context.Context, req *domrec.Request) (domrec.Response, error) {
	considered := req.Considered(e.opts.HistoryLimit)

	var resolved []product.Item
	if len(considered) > 0 {
		var err error
		resolved, err = e.catalog.ProductsByIDs(ctx, considered)
		if err != nil {
			return domrec.Response{}, fmt.Errorf("resolve history: %w", err)
		}
	}

	if len(resolved) > 0 {
		results, err := e.primary.Recommend(ctx, resolved, e.opts.Limit)
		if err != nil {
			return domrec.Response{}, fmt.Errorf("%s: %w", e.primary.Source(), err)
		}
		if len(results) > 0 {
			used := make([]string, len(resolved))
			for i := range resolved {
				used[i] = resolved[i].ID
			}
			return domrec.Response{
				Success:     true,
				UserID:      req.UserID(),
				Source:      e.primary.Source(),
				HistoryUsed: used,
				Results:     results,
			}, nil
		}
	}

	results, err := e.fallback.Recommend(ctx, nil, e.opts.Limit)
	if err != nil {
		return domrec.Response{}, fmt.Errorf("%s: %w", e.fallback.Source(), err)
	}
	return domrec.Response{
		Success:     true,
		UserID:      req.UserID(),
		Source:      e.fallback.Source(),
		HistoryUsed: []string{},
		Results:     results,
	}, nil
}

func (e *Engine) inc(source string) {
	if e.total != nil {
		e.total.WithLabelValues(source).Inc()
	}
}
