package recommendation

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/shelf/internal/domain/product"
	domrec "github.com/kailas-cloud/shelf/internal/domain/recommendation"
)

// tagOverlapWeight scales the Jaccard tag similarity added to category affinity.
const tagOverlapWeight = 0.5

// Strategy produces recommendations from resolved history, most recent first.
type Strategy interface {
	Source() domrec.Source
	Recommend(ctx context.Context, history []product.Item, limit int) ([]domrec.Product, error)
}

// CategoryAffinity recommends products from the categories the user engaged with.
// Each history item at rank r contributes 1/(r+1) to its categories and tags.
type CategoryAffinity struct {
	catalog       Catalog
	perCategory   int
	maxCategories int
}

// NewCategoryAffinity creates the affinity strategy. perCategory bounds candidates
// fetched per category; maxCategories bounds how many categories are queried.
func NewCategoryAffinity(catalog Catalog, perCategory, maxCategories int) *CategoryAffinity {
	return &CategoryAffinity{catalog: catalog, perCategory: perCategory, maxCategories: maxCategories}
}

// Source implements Strategy.
func (s *CategoryAffinity) Source() domrec.Source { return domrec.SourceCategoryAffinity }

// Recommend implements Strategy.
func (s *CategoryAffinity) Recommend(
	ctx context.Context, history []product.Item, limit int,
) ([]domrec.Product, error) {
	catAff := map[string]float64{}
	historyTags := map[string]struct{}{}
	exclude := make(map[string]struct{}, len(history))

	for rank := range history {
		it := &history[rank]
		w := 1.0 / float64(rank+1)
		for _, c := range it.CategoryList() {
			catAff[c] += w
		}
		for _, t := range it.Tags {
			historyTags[t] = struct{}{}
		}
		exclude[it.ID] = struct{}{}
	}

	var maxAff float64
	categories := make([]string, 0, len(catAff))
	for c, a := range catAff {
		categories = append(categories, c)
		if a > maxAff {
			maxAff = a
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		if catAff[categories[i]] != catAff[categories[j]] {
			return catAff[categories[i]] > catAff[categories[j]]
		}
		return categories[i] < categories[j]
	})
	if s.maxCategories > 0 && len(categories) > s.maxCategories {
		categories = categories[:s.maxCategories]
	}

	seen := map[string]struct{}{}
	var out []domrec.Product
	for _, c := range categories {
		items, err := s.catalog.ProductsByCategory(ctx, c, s.perCategory)
		if err != nil {
			return nil, fmt.Errorf("candidates for %q: %w", c, err)
		}
		for i := range items {
			it := &items[i]
			if _, skip := exclude[it.ID]; skip {
				continue
			}
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}

			var aff float64
			for _, ic := range it.CategoryList() {
				if a := catAff[ic]; a > aff {
					aff = a
				}
			}
			score := aff/maxAff + tagOverlapWeight*jaccard(it.Tags, historyTags)
			out = append(out, domrec.NewProduct(it, score))
		}
	}

	return topN(out, limit), nil
}

// PopularityFallback recommends the catalog's most popular products.
type PopularityFallback struct {
	catalog Catalog
}

// NewPopularityFallback creates the fallback strategy.
func NewPopularityFallback(catalog Catalog) *PopularityFallback {
	return &PopularityFallback{catalog: catalog}
}

// Source implements Strategy.
func (s *PopularityFallback) Source() domrec.Source { return domrec.SourcePopularityFallback }

// Recommend implements Strategy. History is ignored.
func (s *PopularityFallback) Recommend(ctx context.Context, _ []product.Item, limit int) ([]domrec.Product, error) {
	items, err := s.catalog.PopularProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	out := make([]domrec.Product, 0, len(items))
	for i := range items {
		out = append(out, domrec.NewProduct(&items[i], 1.0/float64(i+1)))
	}
	return topN(out, limit), nil
}

func jaccard(tags []string, set map[string]struct{}) float64 {
	if len(tags) == 0 || len(set) == 0 {
		return 0
	}
	own := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		own[t] = struct{}{}
	}
	inter := 0
	for t := range own {
		if _, ok := set[t]; ok {
			inter++
		}
	}
	union := len(own) + len(set) - inter
	return float64(inter) / float64(union)
}

// topN orders by score desc, id asc and keeps at most n. Never nil.
func topN(ps []domrec.Product, n int) []domrec.Product {
	if ps == nil {
		ps = []domrec.Product{}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Score != ps[j].Score {
			return ps[i].Score > ps[j].Score
		}
		return ps[i].ID < ps[j].ID
	})
	if n > 0 && len(ps) > n {
		ps = ps[:n]
	}
	return ps
}
