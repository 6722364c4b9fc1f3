package search

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
	"github.com/kailas-cloud/shelf/internal/domain/search/request"
	"github.com/kailas-cloud/shelf/internal/repository/resultcache"
)

type fixture struct {
	svc   *Service
	cat   *mockCatalog
	emb   *mockEmbedder
	cache *memCache
	pop   *mockPopularity
	reqs  *prometheus.CounterVec
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		cat:   &mockCatalog{candidates: fiveCakes()},
		emb:   &mockEmbedder{},
		cache: newMemCache(),
		pop:   &mockPopularity{},
		reqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_search_requests_total"}, []string{"outcome"}),
	}
	f.svc = New(f.cat, f.emb, scoreRanker{}, f.cache, f.pop, opts, Metrics{Requests: f.reqs}, zap.NewNop())
	return f
}

func defaultOptions() Options {
	return Options{CandidatePool: 200, InspirationLimit: 3, CacheTTL: time.Minute, Timeout: time.Second}
}

func mustRequest(t *testing.T, q string, page, pageSize int) *request.Request {
	t.Helper()
	req, err := request.New(q, page, pageSize, filter.Expression{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return &req
}

func ptr[T any](v T) *T { return &v }

func TestSearch_ChocolateCakeFirstPage(t *testing.T) {
	f := newFixture(t, defaultOptions())

	resp := f.svc.Search(context.Background(), mustRequest(t, "chocolate cake", 1, 2))
	if !resp.Success {
		t.Fatal("expected success")
	}
	if len(resp.Results.Product) != 2 || resp.Results.Product[0].ID != "c1" || resp.Results.Product[1].ID != "c2" {
		t.Fatalf("expected items ranked 1-2, got %+v", resp.Results.Product)
	}
	p := resp.Pagination
	if p.TotalResults != 5 || p.TotalPages != 3 || !p.HasNext || p.HasPrev {
		t.Errorf("unexpected pagination: %+v", p)
	}
	if f.cat.lastK != 200 {
		t.Errorf("expected candidate pool 200, got %d", f.cat.lastK)
	}
}

func TestSearch_PagesConcatenateToRankedList(t *testing.T) {
	f := newFixture(t, defaultOptions())

	var ids []string
	for page := 1; page <= 3; page++ {
		resp := f.svc.Search(context.Background(), mustRequest(t, "chocolate cake", page, 2))
		for _, d := range resp.Results.Product {
			ids = append(ids, d.ID)
		}
	}
	want := []string{"c1", "c2", "c3", "c4", "c5"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestSearch_OutOfRangePage(t *testing.T) {
	f := newFixture(t, defaultOptions())

	resp := f.svc.Search(context.Background(), mustRequest(t, "cake", 9, 2))
	if !resp.Success || len(resp.Results.Product) != 0 || resp.Results.Product == nil {
		t.Fatalf("expected empty page, got %+v", resp.Results)
	}
	if resp.Pagination.TotalResults != 5 || resp.Pagination.HasNext || !resp.Pagination.HasPrev {
		t.Errorf("unexpected pagination: %+v", resp.Pagination)
	}
}

func newCachedService(ranker Ranker) *Service {
	cache := resultcache.New(newKVStore(), time.Second, nil, zap.NewNop())
	return New(&mockCatalog{candidates: fiveCakes()}, &mockEmbedder{}, ranker, cache, &mockPopularity{},
		defaultOptions(), Metrics{}, zap.NewNop())
}

func TestSearch_HugePageThroughResultCache(t *testing.T) {
	svc := newCachedService(scoreRanker{})

	resp := svc.Search(context.Background(), mustRequest(t, "cake", request.MaxPage, math.MaxInt/2))
	if !resp.Success || resp.Results.Product == nil || len(resp.Results.Product) != 0 {
		t.Fatalf("expected empty page, got %+v", resp.Results)
	}
	if resp.Pagination.TotalResults != 5 || resp.Pagination.TotalPages != 1 || resp.Pagination.HasNext {
		t.Errorf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestSearch_ComputationPanicIsFailure(t *testing.T) {
	svc := newCachedService(panicRanker{})

	resp := svc.Search(context.Background(), mustRequest(t, "cake", 1, 2))
	if resp.Success || len(resp.Results.Product) != 0 {
		t.Fatalf("expected failed response, got %+v", resp)
	}
	if resp.Pagination.TotalResults != 0 {
		t.Errorf("pagination not zeroed: %+v", resp.Pagination)
	}
}

func TestSearch_InspirationOnFirstPageOnly(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.cat.inspirations = []inspiration.Document{
		{ID: ptr("i2"), Score: 1, Document: inspiration.Attributes{Title: "B"}},
		{ID: ptr("i1"), Score: 5, Document: inspiration.Attributes{Title: "A"}},
	}

	first := f.svc.Search(context.Background(), mustRequest(t, "cake", 1, 2))
	if len(first.Results.SuperInspiration) != 2 || *first.Results.SuperInspiration[0].ID != "i1" {
		t.Fatalf("expected ranked inspirations, got %+v", first.Results.SuperInspiration)
	}

	second := f.svc.Search(context.Background(), mustRequest(t, "cake", 2, 2))
	if second.Results.SuperInspiration != nil {
		t.Errorf("inspiration must be omitted after page 1")
	}
	if f.cat.inspCalls != 1 {
		t.Errorf("expected one inspiration search, got %d", f.cat.inspCalls)
	}
}

func TestSearch_InspirationFailureOmitted(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.cat.inspErr = errors.New("bm25 unavailable")

	resp := f.svc.Search(context.Background(), mustRequest(t, "cake", 1, 2))
	if !resp.Success || len(resp.Results.Product) != 2 {
		t.Fatalf("products must survive inspiration failure: %+v", resp)
	}
	if resp.Results.SuperInspiration != nil {
		t.Error("failed inspiration must be omitted")
	}
}

func TestSearch_CacheHitSkipsWork(t *testing.T) {
	f := newFixture(t, defaultOptions())

	first := f.svc.Search(context.Background(), mustRequest(t, "Chocolate Cake", 1, 2))
	second := f.svc.Search(context.Background(), mustRequest(t, "  chocolate   cake ", 1, 2))

	if f.cat.productCalls != 1 || f.emb.calls != 1 {
		t.Errorf("expected one computation, got catalog=%d embed=%d", f.cat.productCalls, f.emb.calls)
	}
	if len(first.Results.Product) != len(second.Results.Product) ||
		first.Results.Product[0].ID != second.Results.Product[0].ID ||
		first.Pagination != second.Pagination {
		t.Errorf("cached response differs")
	}
	if second.Query != "chocolate cake" {
		t.Errorf("query should echo the request, got %q", second.Query)
	}
	if v := testutil.ToFloat64(f.reqs.WithLabelValues("hit")); v != 1 {
		t.Errorf("expected 1 hit, got %v", v)
	}
	if len(f.pop.recorded) != 1 {
		t.Errorf("popularity is recorded on computation, got %v", f.pop.recorded)
	}
}

func TestSearch_ClearCacheForcesRecompute(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()

	f.svc.Search(ctx, mustRequest(t, "cake", 1, 2))
	if resp := f.svc.ClearCache(ctx); !resp.Success || resp.Message != ClearedMessage {
		t.Fatalf("unexpected clear response: %+v", resp)
	}
	f.svc.Search(ctx, mustRequest(t, "cake", 1, 2))

	if f.cat.productCalls != 2 {
		t.Errorf("expected recompute after clear, got %d computations", f.cat.productCalls)
	}
	if f.pop.resets != 1 {
		t.Errorf("expected popularity reset, got %d", f.pop.resets)
	}
}

func TestClearCache_Failure(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.cache.clearErr = errors.New("scan failed")

	resp := f.svc.ClearCache(context.Background())
	if resp.Success {
		t.Fatal("expected failure")
	}
	if f.pop.resets != 0 {
		t.Error("popularity must not be reset when the cache clear fails")
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"embedding", func(f *fixture) { f.emb.err = domain.ErrEmbeddingProviderError }},
		{"catalog", func(f *fixture) { f.cat.productErr = domain.ErrUpstream }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultOptions())
			f.cat.inspirations = []inspiration.Document{{ID: ptr("i1")}}
			tt.setup(f)

			resp := f.svc.Search(context.Background(), mustRequest(t, "cake", 2, 5))
			assertFailed(t, resp.Success, len(resp.Results.Product), resp.Results.SuperInspiration != nil)
			if resp.Pagination.Page != 0 || resp.Pagination.PageSize != 0 || resp.Pagination.TotalResults != 0 {
				t.Errorf("expected zeroed pagination, got %+v", resp.Pagination)
			}
			if resp.Query != "cake" {
				t.Errorf("query should be echoed, got %q", resp.Query)
			}
			if len(f.cache.data) != 0 {
				t.Error("failed response must not be cached")
			}
			if v := testutil.ToFloat64(f.reqs.WithLabelValues("failed")); v != 1 {
				t.Errorf("expected 1 failure counted, got %v", v)
			}
		})
	}
}

func TestSearch_Timeout(t *testing.T) {
	opts := defaultOptions()
	opts.Timeout = 20 * time.Millisecond
	f := newFixture(t, opts)
	f.cat.block = make(chan struct{})
	defer close(f.cat.block)

	resp := f.svc.Search(context.Background(), mustRequest(t, "cake", 1, 2))
	assertFailed(t, resp.Success, len(resp.Results.Product), resp.Results.SuperInspiration != nil)
}

func TestSearch_PassesFilters(t *testing.T) {
	f := newFixture(t, defaultOptions())
	cond, _ := filter.NewMatch(filter.KeyCategory, "Cakes")
	expr, _ := filter.NewExpression(cond)
	req, err := request.New("cake", 1, 2, expr)
	if err != nil {
		t.Fatal(err)
	}

	f.svc.Search(context.Background(), &req)
	if f.cat.lastFilters.Canonical() != `category="Cakes"` {
		t.Errorf("filters not forwarded: %s", f.cat.lastFilters.Canonical())
	}
}

func TestPopularSearches(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.pop.top = []popular.Search{{Term: "cake", Count: 3}}

	resp, err := f.svc.PopularSearches(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || len(resp.Results) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestPopularSearches_Errors(t *testing.T) {
	f := newFixture(t, defaultOptions())

	f.pop.topErr = domain.NewValidationError("limit", "must be positive")
	if _, err := f.svc.PopularSearches(context.Background(), 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	f.pop.topErr = domain.ErrUpstream
	resp, err := f.svc.PopularSearches(context.Background(), 5)
	if err != nil {
		t.Fatalf("upstream failures are not errors: %v", err)
	}
	if resp.Success || resp.Results == nil {
		t.Errorf("expected failed response with empty results, got %+v", resp)
	}
}

func assertFailed(t *testing.T, success bool, products int, hasInspiration bool) {
	t.Helper()
	if success || products != 0 || hasInspiration {
		t.Errorf("expected failed response, got success=%v products=%d inspiration=%v",
			success, products, hasInspiration)
	}
}
