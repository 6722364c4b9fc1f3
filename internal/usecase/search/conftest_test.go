package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
)

type mockCatalog struct {
	candidates   []product.Candidate
	productErr   error
	inspirations []inspiration.Document
	inspErr      error

	productCalls int
	inspCalls    int
	lastK        int
	lastFilters  filter.Expression
	block        chan struct{}
}

func (m *mockCatalog) SearchProducts(
	ctx context.Context, _ []float32, filters filter.Expression, k int,
) ([]product.Candidate, error) {
	m.productCalls++
	m.lastK = k
	m.lastFilters = filters
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.candidates, m.productErr
}

func (m *mockCatalog) SearchInspirations(_ context.Context, _ string, _ int) ([]inspiration.Document, error) {
	m.inspCalls++
	return m.inspirations, m.inspErr
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

// scoreRanker ranks by vector score only.
type scoreRanker struct{}

func (scoreRanker) Rank(_ string, candidates []product.Candidate) []product.Document {
	out := make([]product.Document, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		out = append(out, product.Document{
			ID:            c.Item.ID,
			Score:         c.VectorScore,
			ScoreOriginal: c.VectorScore,
			Document:      product.AttributesOf(c),
		})
	}
	return out
}

type memCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	clearErr error
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

func (m *memCache) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	n := len(m.data)
	m.data = map[string][]byte{}
	return n, nil
}

type mockPopularity struct {
	recorded []string
	top      []popular.Search
	topErr   error
	resets   int
}

func (m *mockPopularity) Record(_ context.Context, term string) error {
	m.recorded = append(m.recorded, term)
	return nil
}

func (m *mockPopularity) Top(_ context.Context, _ int) ([]popular.Search, error) {
	return m.top, m.topErr
}

func (m *mockPopularity) Reset(_ context.Context) error {
	m.resets++
	return nil
}

// fiveCakes is a 5-item candidate pool, already in score order.
func fiveCakes() []product.Candidate {
	ids := []string{"c1", "c2", "c3", "c4", "c5"}
	out := make([]product.Candidate, len(ids))
	for i, id := range ids {
		out[i] = product.Candidate{
			Item:        product.Item{ID: id, Name: "Chocolate cake " + id},
			VectorScore: 1 - float64(i)/10,
		}
	}
	return out
}

// kvStore backs a real resultcache.Cache in tests.
type kvStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newKVStore() *kvStore { return &kvStore{data: map[string][]byte{}} }

func (s *kvStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *kvStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *kvStore) Scan(_ context.Context, _ string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *kvStore) Unlink(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return len(keys), nil
}

// panicRanker fails the way a programming error in scoring would.
type panicRanker struct{}

func (panicRanker) Rank(string, []product.Candidate) []product.Document {
	panic("ranker bug")
}
