package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/config"
	dbRedis "github.com/kailas-cloud/shelf/internal/db/redis"
	"github.com/kailas-cloud/shelf/internal/domain"
	logpkg "github.com/kailas-cloud/shelf/internal/logger"
	"github.com/kailas-cloud/shelf/internal/metrics"
	"github.com/kailas-cloud/shelf/internal/repository/catalog"
	"github.com/kailas-cloud/shelf/internal/repository/embcache"
	popularityrepo "github.com/kailas-cloud/shelf/internal/repository/popularity"
	"github.com/kailas-cloud/shelf/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/shelf/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/shelf/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/shelf/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shelf/internal/usecase/health"
	popularityuc "github.com/kailas-cloud/shelf/internal/usecase/popularity"
	recommendationuc "github.com/kailas-cloud/shelf/internal/usecase/recommendation"
	"github.com/kailas-cloud/shelf/internal/usecase/scoring"
	searchuc "github.com/kailas-cloud/shelf/internal/usecase/search"
	"github.com/kailas-cloud/shelf/internal/version"
)

// affinityCategories bounds how many of a user's top categories feed recommendations.
const affinityCategories = 3

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shelf API server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := catalog.EnsureIndexes(ctx, store, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure catalog indexes", zap.Error(err))
	}

	// Registered explicitly, no init().
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterServiceMetrics()

	embedder := buildEmbedder(&cfg.Embedding, store, logger)
	logger.Info("Query embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	catalogRepo := catalog.New(store, catalog.BreakerSettings{
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		Interval:     time.Duration(cfg.Breaker.IntervalSec) * time.Second,
	}, logger)
	cache := resultcache.New(store, cfg.Search.RequestTimeout(), metrics.CacheTotal, logger)
	tracker := popularityuc.New(popularityrepo.New(store), cfg.Popularity.MaxLimit, metrics.PopularityRecordsTotal)

	ranker := scoring.NewEngine(cfg.Scoring.VectorWeight, cfg.Scoring.TextWeight, scoring.Chain{
		scoring.PromoBooster{Factor: cfg.Scoring.PromoFactor},
		scoring.FreshnessBooster{
			Bonus:  cfg.Scoring.FreshnessBonus,
			Window: time.Duration(cfg.Scoring.FreshnessWindowHrs) * time.Hour,
		},
	})

	searchSvc := searchuc.New(catalogRepo, embedder, ranker, cache, tracker,
		searchuc.Options{
			CandidatePool:    cfg.Search.CandidatePool,
			InspirationLimit: cfg.Search.InspirationLimit,
			CacheTTL:         time.Duration(cfg.Cache.SearchTTLSec) * time.Second,
			Timeout:          cfg.Search.RequestTimeout(),
		},
		searchuc.Metrics{
			StageDuration: metrics.SearchStageDuration,
			Requests:      metrics.SearchRequestsTotal,
		},
		logger,
	)

	recsSvc := recommendationuc.New(catalogRepo,
		recommendationuc.NewCategoryAffinity(catalogRepo, cfg.Recommendation.CandidatesPerCategory, affinityCategories),
		recommendationuc.NewPopularityFallback(catalogRepo),
		cache,
		recommendationuc.Options{
			HistoryLimit: cfg.Recommendation.HistoryLimit,
			Limit:        cfg.Recommendation.Limit,
			CacheTTL:     time.Duration(cfg.Cache.RecsTTLSec) * time.Second,
			Timeout:      cfg.Recommendation.RequestTimeout(),
		},
		metrics.RecommendationsTotal,
		logger,
	)

	healthSvc := healthuc.New(store, store,
		[]string{catalog.ProductIndex, catalog.InspirationIndex}, embedder)

	server := chiTransport.NewServer(searchSvc, recsSvc, healthSvc, chiTransport.Options{
		DefaultPageSize:     cfg.Search.DefaultPageSize,
		MaxPageSize:         cfg.Search.MaxPageSize,
		DefaultPopularLimit: cfg.Popularity.DefaultLimit,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// queryEmbedder is the chain head: embeds queries and reports provider health.
type queryEmbedder interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(cfg *config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) queryEmbedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	cached := embcache.New(base, store, cfg.Model,
		time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)

	instrumented := embeddinguc.NewInstrumentedEmbedder(cached, cfg.Provider, cfg.Model, logger)

	// Outermost so the cache key includes the instruction.
	return domain.NewInstructionEmbedder(instrumented, cfg.QueryInstruction)
}
