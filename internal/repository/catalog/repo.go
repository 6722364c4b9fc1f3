package catalog

import (
	"context"
	"fmt"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
)

// store is the consumer interface for catalog access (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Repo reads and writes the product and inspiration catalog.
// All reads go through a circuit breaker.
type Repo struct {
	store store
	cb    *gobreaker.CircuitBreaker[any]
}

// New creates a catalog repository.
func New(s store, settings BreakerSettings, logger *zap.Logger) *Repo {
	return &Repo{store: s, cb: newBreaker(settings, logger)}
}

// SearchProducts returns up to k products nearest to vector that satisfy filters,
// best first.
func (r *Repo) SearchProducts(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) ([]product.Candidate, error) {
	sr, err := guard(r.cb, "search products", func() (*db.SearchResult, error) {
		return r.store.SearchKNN(ctx, &db.KNNQuery{
			IndexName:    ProductIndex,
			Filters:      filters,
			Vector:       vector,
			K:            k,
			ReturnFields: productReturnFields,
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]product.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, product.Candidate{
			Item:        parseProductFields(strings.TrimPrefix(e.Key, ProductKeyPrefix), e.Fields),
			VectorScore: e.Score,
		})
	}
	return out, nil
}

// SearchInspirations returns up to limit inspiration cards matching query by BM25.
func (r *Repo) SearchInspirations(ctx context.Context, query string, limit int) ([]inspiration.Document, error) {
	sr, err := guard(r.cb, "search inspirations", func() (*db.SearchResult, error) {
		return r.store.SearchBM25(ctx, &db.TextQuery{
			IndexName:    InspirationIndex,
			Query:        query,
			Fields:       []string{fieldTitle, fieldDescription, fieldChunkText},
			TopK:         limit,
			ReturnFields: inspirationReturnFields,
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]inspiration.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, parseInspirationFields(e.Score, e.Fields))
	}
	return out, nil
}

// ProductsByIDs resolves ids in input order. Unknown ids are skipped.
func (r *Repo) ProductsByIDs(ctx context.Context, ids []string) ([]product.Item, error) {
	if len(ids) == 0 {
		return []product.Item{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ProductKeyPrefix + id
	}

	rows, err := guard(r.cb, "get products", func() ([]map[string]string, error) {
		return r.store.HGetAllMulti(ctx, keys)
	})
	if err != nil {
		return nil, err
	}

	out := make([]product.Item, 0, len(rows))
	for i, m := range rows {
		if len(m) == 0 {
			continue
		}
		out = append(out, parseProductFields(ids[i], m))
	}
	return out, nil
}

// ProductsByCategory lists up to limit products tagged with category, most popular first.
func (r *Repo) ProductsByCategory(ctx context.Context, category string, limit int) ([]product.Item, error) {
	cond, err := filter.NewMatch(filter.KeyCategory, category)
	if err != nil {
		return nil, fmt.Errorf("category filter: %w", err)
	}
	expr, err := filter.NewExpression(cond)
	if err != nil {
		return nil, fmt.Errorf("category filter: %w", err)
	}
	return r.list(ctx, "products by category", expr, limit)
}

// PopularProducts lists up to limit products by catalog popularity.
func (r *Repo) PopularProducts(ctx context.Context, limit int) ([]product.Item, error) {
	return r.list(ctx, "popular products", filter.Expression{}, limit)
}

func (r *Repo) list(ctx context.Context, op string, expr filter.Expression, limit int) ([]product.Item, error) {
	sr, err := guard(r.cb, op, func() (*db.SearchResult, error) {
		return r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    ProductIndex,
			Filters:      expr,
			Limit:        limit,
			SortBy:       fieldPopularity,
			Desc:         true,
			ReturnFields: productReturnFields,
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]product.Item, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, parseProductFields(strings.TrimPrefix(e.Key, ProductKeyPrefix), e.Fields))
	}
	return out, nil
}

// ProductRecord is a catalog item with its embedding, as written by the loader.
type ProductRecord struct {
	Item   product.Item
	Vector []float32
}

// UpsertProducts writes products in one pipelined round-trip.
func (r *Repo) UpsertProducts(ctx context.Context, records []ProductRecord) error {
	items := make([]db.HashSetItem, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Item.ID == "" {
			return fmt.Errorf("product at position %d has no id", i)
		}
		items = append(items, db.HashSetItem{
			Key:    ProductKeyPrefix + rec.Item.ID,
			Fields: buildProductFields(&rec.Item, rec.Vector),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	return nil
}

// InspirationRecord is an inspiration card keyed for storage.
// Key is used when the card carries no id of its own.
type InspirationRecord struct {
	Key      string
	Document inspiration.Document
}

// UpsertInspirations writes inspiration cards in one pipelined round-trip.
func (r *Repo) UpsertInspirations(ctx context.Context, records []InspirationRecord) error {
	items := make([]db.HashSetItem, 0, len(records))
	for i := range records {
		rec := &records[i]
		key := rec.Key
		if rec.Document.ID != nil {
			key = *rec.Document.ID
		}
		if key == "" {
			return fmt.Errorf("inspiration at position %d has no id or key", i)
		}
		items = append(items, db.HashSetItem{
			Key:    InspirationKeyPrefix + key,
			Fields: buildInspirationFields(&rec.Document.Document, rec.Document.ID),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert inspirations: %w", err)
	}
	return nil
}
