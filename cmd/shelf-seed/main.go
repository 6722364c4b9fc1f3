// Command shelf-seed loads a JSON catalog into the shelf Redis indexes.
//
// Usage:
//
//	shelf-seed -file catalog.json -batch-size 128
//
// Connection and embedding settings come from config/{ENV}.yaml, same as the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/config"
	dbRedis "github.com/kailas-cloud/shelf/internal/db/redis"
	logpkg "github.com/kailas-cloud/shelf/internal/logger"
	"github.com/kailas-cloud/shelf/internal/metrics"
	"github.com/kailas-cloud/shelf/internal/repository/catalog"
	"github.com/kailas-cloud/shelf/internal/repository/resultcache"
	openaiEmb "github.com/kailas-cloud/shelf/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/shelf/internal/usecase/embedding"
)

type options struct {
	file       string
	batchSize  int
	chunk      int
	skipEmbed  bool
	clearCache bool
}

func parseFlags() options {
	o := options{}
	flag.StringVar(&o.file, "file", "catalog.json", "path to the JSON catalog")
	flag.IntVar(&o.batchSize, "batch-size", 200, "products written per pipeline")
	flag.IntVar(&o.chunk, "embed-chunk", embeddinguc.DefaultMaxAPIBatchSize, "texts per embeddings API call")
	flag.BoolVar(&o.skipEmbed, "skip-embed", false, "write product metadata without vectors")
	flag.BoolVar(&o.clearCache, "clear-cache", true, "drop cached search and recommendation responses afterwards")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

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

	if err := run(ctx, &cfg, opts, logger); err != nil {
		logger.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	start := time.Now()

	f, err := os.Open(filepath.Clean(opts.file))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	data, err := decodeCatalog(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := catalog.EnsureIndexes(ctx, store, cfg.Embedding.Dimensions); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	repo := catalog.New(store, catalog.BreakerSettings{
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		Interval:     time.Duration(cfg.Breaker.IntervalSec) * time.Second,
	}, logger)

	var vectors [][]float32
	if !opts.skipEmbed && len(data.Products) > 0 {
		embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})

		texts := make([]string, len(data.Products))
		for i := range data.Products {
			texts[i] = data.Products[i].embeddingText()
		}
		vectors, err = embeddinguc.EmbedAll(ctx, embedder, texts, opts.chunk)
		if err != nil {
			return fmt.Errorf("embed products: %w", err)
		}
		logger.Info("Products embedded", zap.Int("count", len(vectors)))
	}

	records, err := productRecords(data.Products, vectors)
	if err != nil {
		return err
	}
	for _, batch := range batches(records, opts.batchSize) {
		if err := repo.UpsertProducts(ctx, batch); err != nil {
			return err
		}
	}

	if err := repo.UpsertInspirations(ctx, inspirationRecords(data.Inspirations)); err != nil {
		return err
	}

	if opts.clearCache {
		cache := resultcache.New(store, cfg.Search.RequestTimeout(), nil, logger)
		n, err := cache.Clear(ctx)
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		logger.Info("Result cache cleared", zap.Int("keys", n))
	}

	logger.Info("Seed complete",
		zap.Int("products", len(records)),
		zap.Int("inspirations", len(data.Inspirations)),
		zap.Bool("vectors", vectors != nil),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// batches splits s into consecutive slices of at most size elements.
func batches[T any](s []T, size int) [][]T {
	if size <= 0 {
		size = len(s)
	}
	var out [][]T
	for len(s) > 0 {
		n := min(size, len(s))
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
