package recommendation

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/shelf/internal/domain/product"
)

type mockCatalog struct {
	items      map[string]product.Item
	byCategory map[string][]product.Item
	popular    []product.Item
	err        error

	categoryCalls []string
	popularCalls  int
}

func (m *mockCatalog) ProductsByIDs(_ context.Context, ids []string) ([]product.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []product.Item{}
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockCatalog) ProductsByCategory(_ context.Context, category string, limit int) ([]product.Item, error) {
	m.categoryCalls = append(m.categoryCalls, category)
	if m.err != nil {
		return nil, m.err
	}
	items := m.byCategory[category]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *mockCatalog) PopularProducts(_ context.Context, limit int) ([]product.Item, error) {
	m.popularCalls++
	if m.err != nil {
		return nil, m.err
	}
	items := m.popular
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// memCache is a synchronous in-memory ResultCache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetOrCompute(
	ctx context.Context, namespace, fingerprint string, ttl time.Duration,
	fn func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	m.mu.Lock()
	v, ok := m.data[namespace+":"+fingerprint]
	m.mu.Unlock()
	if ok {
		return v, true, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}
	m.Put(ctx, namespace, fingerprint, v, ttl)
	return v, false, nil
}

func (m *memCache) Put(_ context.Context, namespace, fingerprint string, payload []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[namespace+":"+fingerprint] = payload
}

func item(id, categories string, tags ...string) product.Item {
	return product.Item{ID: id, Name: "Product " + id, Categories: categories, Tags: tags}
}
