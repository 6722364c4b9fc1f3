package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
)

func TestSearchProducts(t *testing.T) {
	r, ms := newTestRepo(t)

	cond, err := filter.NewMatch(filter.KeyStore, "Downtown")
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.NewExpression(cond)
	if err != nil {
		t.Fatal(err)
	}

	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "shelf:product:p1",
			Score: 0.92,
			Fields: map[string]string{
				"product_name":  "Chocolate Cake",
				"selling_price": "12.5",
				"images":        `["a.jpg","b.jpg"]`,
			},
		}}}, nil
	}

	out, err := r.SearchProducts(context.Background(), []float32{0.1, 0.2}, expr, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != ProductIndex || got.K != 50 || len(got.Vector) != 2 {
		t.Errorf("unexpected query: %+v", got)
	}
	if got.Filters.Canonical() != `store="Downtown"` {
		t.Errorf("filters not passed through: %s", got.Filters.Canonical())
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	c := out[0]
	if c.Item.ID != "p1" || c.Item.Name != "Chocolate Cake" || c.VectorScore != 0.92 {
		t.Errorf("unexpected candidate: %+v", c)
	}
	if c.Item.SellingPrice != 12.5 || len(c.Item.Images) != 2 {
		t.Errorf("fields not parsed: %+v", c.Item)
	}
}

func TestSearchProducts_StoreErrorIsUpstream(t *testing.T) {
	r, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
	}

	_, err := r.SearchProducts(context.Background(), []float32{1}, filter.Expression{}, 10)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestSearchProducts_DeadlineIsTimeout(t *testing.T) {
	r, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, fmt.Errorf("search: %w", context.DeadlineExceeded)
	}

	_, err := r.SearchProducts(context.Background(), []float32{1}, filter.Expression{}, 10)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	r, ms := newTestRepo(t)
	calls := 0
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		calls++
		return nil, errors.New("boom")
	}

	for range 2 {
		_, _ = r.SearchProducts(context.Background(), []float32{1}, filter.Expression{}, 10)
	}
	_, err := r.SearchProducts(context.Background(), []float32{1}, filter.Expression{}, 10)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream from open breaker, got %v", err)
	}
	if calls != 2 {
		t.Errorf("open breaker must short-circuit, store called %d times", calls)
	}
}

func TestBreaker_CanceledDoesNotTrip(t *testing.T) {
	r, ms := newTestRepo(t)
	calls := 0
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		calls++
		return nil, context.Canceled
	}

	for range 5 {
		_, _ = r.SearchProducts(context.Background(), []float32{1}, filter.Expression{}, 10)
	}
	if calls != 5 {
		t.Errorf("canceled calls must not open the breaker, store called %d times", calls)
	}
}

func TestSearchInspirations(t *testing.T) {
	r, ms := newTestRepo(t)

	var got *db.TextQuery
	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "shelf:inspiration:i1",
			Score: 3.4,
			Fields: map[string]string{
				"id":        "i1",
				"title":     "Birthday ideas",
				"image":     "i.jpg",
				"cook_time": "42.5",
			},
		}}}, nil
	}

	out, err := r.SearchInspirations(context.Background(), "chocolate cake", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != InspirationIndex || got.TopK != 3 || got.Query != "chocolate cake" {
		t.Errorf("unexpected query: %+v", got)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 inspiration, got %d", len(out))
	}
	d := out[0]
	if d.ID == nil || *d.ID != "i1" || d.Score != 3.4 || d.Document.Title != "Birthday ideas" {
		t.Errorf("unexpected document: %+v", d)
	}
	if d.Document.CookTime == nil || *d.Document.CookTime != 42.5 {
		t.Errorf("cook_time not parsed: %+v", d.Document.CookTime)
	}
	if d.Document.Category != nil {
		t.Errorf("absent category must stay nil")
	}
}

func TestProductsByIDs_KeepsOrderSkipsMissing(t *testing.T) {
	r, ms := newTestRepo(t)

	var gotKeys []string
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		gotKeys = keys
		return []map[string]string{
			{"product_name": "B"},
			nil,
			{"product_name": "A"},
		}, nil
	}

	out, err := r.ProductsByIDs(context.Background(), []string{"b", "missing", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotKeys) != 3 || gotKeys[0] != "shelf:product:b" {
		t.Errorf("unexpected keys: %v", gotKeys)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("unexpected products: %+v", out)
	}
}

func TestProductsByIDs_Empty(t *testing.T) {
	r, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		t.Fatal("store must not be called for empty ids")
		return nil, nil
	}

	out, err := r.ProductsByIDs(context.Background(), nil)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", out, err)
	}
}

func TestProductsByCategory(t *testing.T) {
	r, ms := newTestRepo(t)

	var got *db.ListQuery
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Entries: []db.SearchEntry{
			{Key: "shelf:product:p1", Fields: map[string]string{"popularity": "9"}},
			{Key: "shelf:product:p2", Fields: map[string]string{"popularity": "3"}},
		}}, nil
	}

	out, err := r.ProductsByCategory(context.Background(), "Cakes", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SortBy != "popularity" || !got.Desc || got.Limit != 20 {
		t.Errorf("unexpected list query: %+v", got)
	}
	if got.Filters.Canonical() != `category="Cakes"` {
		t.Errorf("unexpected filter: %s", got.Filters.Canonical())
	}
	if len(out) != 2 || out[0].ID != "p1" || out[0].Popularity != 9 {
		t.Errorf("unexpected products: %+v", out)
	}
}

func TestProductsByCategory_EmptyCategory(t *testing.T) {
	r, _ := newTestRepo(t)
	if _, err := r.ProductsByCategory(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for blank category")
	}
}

func TestPopularProducts_NoFilter(t *testing.T) {
	r, ms := newTestRepo(t)

	var got *db.ListQuery
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}

	if _, err := r.PopularProducts(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Filters.IsEmpty() || got.Limit != 5 {
		t.Errorf("unexpected list query: %+v", got)
	}
}

func TestUpsertProducts(t *testing.T) {
	r, ms := newTestRepo(t)

	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, in []db.HashSetItem) error {
		items = in
		return nil
	}

	err := r.UpsertProducts(context.Background(), []ProductRecord{{
		Item: product.Item{
			ID:            "p1",
			Name:          "Cake",
			Categories:    "Cakes, Desserts",
			SellingPrice:  10,
			DiscountPrice: 8,
		},
		Vector: []float32{1, 0},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Key != "shelf:product:p1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	f := items[0].Fields
	if f["price"] != "8" {
		t.Errorf("expected effective price 8, got %q", f["price"])
	}
	if f["category"] != "Cakes,Desserts" {
		t.Errorf("unexpected category tag: %q", f["category"])
	}
	if f["images"] != "[]" {
		t.Errorf("expected empty image array, got %q", f["images"])
	}
	if len(f["vector"]) != 8 {
		t.Errorf("expected 8-byte vector blob, got %d", len(f["vector"]))
	}
}

func TestUpsertProducts_MissingID(t *testing.T) {
	r, _ := newTestRepo(t)
	err := r.UpsertProducts(context.Background(), []ProductRecord{{Item: product.Item{Name: "x"}}})
	if err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestUpsertInspirations_KeyFallback(t *testing.T) {
	r, ms := newTestRepo(t)

	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, in []db.HashSetItem) error {
		items = in
		return nil
	}

	id := "i1"
	err := r.UpsertInspirations(context.Background(), []InspirationRecord{
		{Document: inspiration.Document{ID: &id, Document: inspiration.Attributes{Title: "A"}}},
		{Key: "slug", Document: inspiration.Document{Document: inspiration.Attributes{Title: "B"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Key != "shelf:inspiration:i1" || items[1].Key != "shelf:inspiration:slug" {
		t.Fatalf("unexpected keys: %+v", items)
	}
	if _, ok := items[1].Fields["id"]; ok {
		t.Error("card without id must not store an id field")
	}
}

func TestEnsureIndexes_CreatesMissing(t *testing.T) {
	ms := &mockStore{exists: map[string]bool{ProductIndex: true}}

	if err := EnsureIndexes(context.Background(), ms, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.created) != 1 || ms.created[0] != InspirationIndex {
		t.Errorf("expected only inspiration index created, got %v", ms.created)
	}
}

func TestProductIndexDefinition(t *testing.T) {
	def, err := ProductIndexDefinition(1536)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != ProductIndex || len(def.Prefixes) != 1 || def.Prefixes[0] != ProductKeyPrefix {
		t.Errorf("unexpected definition: %+v", def)
	}
	var hasVector bool
	for _, f := range def.Fields {
		if f.Type == db.IndexFieldVector && f.VectorDim == 1536 {
			hasVector = true
		}
	}
	if !hasVector {
		t.Error("expected 1536-dim vector field")
	}
}
