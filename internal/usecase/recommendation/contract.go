package recommendation

import (
	"context"
	"time"

	"github.com/kailas-cloud/shelf/internal/domain/product"
)

// Catalog reads products for recommendation.
type Catalog interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]product.Item, error)
	ProductsByCategory(ctx context.Context, category string, limit int) ([]product.Item, error)
	PopularProducts(ctx context.Context, limit int) ([]product.Item, error)
}

// ResultCache stores encoded responses by fingerprint.
type ResultCache interface {
	GetOrCompute(
		ctx context.Context, namespace, fingerprint string, ttl time.Duration,
		fn func(ctx context.Context) ([]byte, error),
	) ([]byte, bool, error)
	Put(ctx context.Context, namespace, fingerprint string, payload []byte, ttl time.Duration)
}
