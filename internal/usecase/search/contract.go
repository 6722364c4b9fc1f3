package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
)

// Catalog defines the read contract for product and inspiration search.
type Catalog interface {
	SearchProducts(ctx context.Context, vector []float32, filters filter.Expression, k int) ([]product.Candidate, error)
	SearchInspirations(ctx context.Context, query string, limit int) ([]inspiration.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ranker scores and orders the candidate pool.
type Ranker interface {
	Rank(query string, candidates []product.Candidate) []product.Document
}

// ResultCache stores encoded responses by fingerprint.
type ResultCache interface {
	GetOrCompute(
		ctx context.Context, namespace, fingerprint string, ttl time.Duration,
		fn func(ctx context.Context) ([]byte, error),
	) ([]byte, bool, error)
	Put(ctx context.Context, namespace, fingerprint string, payload []byte, ttl time.Duration)
	Clear(ctx context.Context) (int, error)
}

// Popularity counts search terms.
type Popularity interface {
	Record(ctx context.Context, term string) error
	Top(ctx context.Context, limit int) ([]popular.Search, error)
	Reset(ctx context.Context) error
}
