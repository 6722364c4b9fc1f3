package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest number of texts sent in one API request.
const DefaultMaxAPIBatchSize = 256

// BatchEmbedder embeds several texts per call. Vectors follow input order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// InstrumentedEmbedder wraps Embedder with request logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// EmbedAll splits texts into chunks of at most chunkSize and embeds them in order.
// A non-positive chunkSize means DefaultMaxAPIBatchSize.
func EmbedAll(ctx context.Context, be BatchEmbedder, texts []string, chunkSize int) ([][]float32, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxAPIBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += chunkSize {
		end := min(offset+chunkSize, len(texts))

		vecs, err := be.BatchEmbed(ctx, texts[offset:end])
		if err != nil {
			return nil, fmt.Errorf("batch embed (chunk %d): %w", offset, err)
		}
		if len(vecs) != end-offset {
			return nil, fmt.Errorf("batch embed (chunk %d): got %d vectors for %d texts: %w",
				offset, len(vecs), end-offset, domain.ErrEmbeddingProviderError)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
