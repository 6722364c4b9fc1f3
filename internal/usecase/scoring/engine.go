// Package scoring ranks candidate products by blended relevance and boosts.
package scoring

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/product"
)

// epsilon separates a real boost from floating-point noise.
const epsilon = 1e-9

// Per-field weights of a matched query token.
const (
	nameHitWeight     = 1.0
	categoryHitWeight = 0.6
	chunkHitWeight    = 0.3
)

// Engine blends vector and text relevance, applies boosts and orders the result.
type Engine struct {
	vectorWeight float64
	textWeight   float64
	booster      Booster
}

// NewEngine creates a scoring engine. booster may be nil.
func NewEngine(vectorWeight, textWeight float64, booster Booster) *Engine {
	return &Engine{vectorWeight: vectorWeight, textWeight: textWeight, booster: booster}
}

// Rank scores every candidate and returns them ordered by score desc,
// score_original desc, id asc. The result is never nil.
func (e *Engine) Rank(query string, candidates []product.Candidate) []product.Document {
	docs := make([]product.Document, 0, len(candidates))
	tokens := strings.Fields(domain.NormalizeText(query))

	for i := range candidates {
		c := &candidates[i]
		original := e.vectorWeight*c.VectorScore + e.textWeight*textRelevance(tokens, &c.Item)

		score := original
		if e.booster != nil {
			if boosted := e.booster.Boost(&c.Item, original); boosted > original {
				score = boosted
			}
		}

		docs = append(docs, product.Document{
			ID:            c.Item.ID,
			Score:         score,
			ScoreOriginal: original,
			Boosted:       score-original > epsilon,
			Document:      product.AttributesOf(c),
		})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ScoreOriginal != b.ScoreOriginal {
			return a.ScoreOriginal > b.ScoreOriginal
		}
		return a.ID < b.ID
	})
	return docs
}

// textRelevance is the mean best-field weight of query tokens found in the item, capped at 1.
func textRelevance(tokens []string, it *product.Item) float64 {
	if len(tokens) == 0 {
		return 0
	}
	name := strings.ToLower(it.Name)
	categories := strings.ToLower(it.Categories)
	chunk := strings.ToLower(it.ChunkText)

	var sum float64
	for _, tok := range tokens {
		switch {
		case strings.Contains(name, tok):
			sum += nameHitWeight
		case strings.Contains(categories, tok):
			sum += categoryHitWeight
		case strings.Contains(chunk, tok):
			sum += chunkHitWeight
		}
	}
	rel := sum / float64(len(tokens))
	if rel > 1 {
		return 1
	}
	return rel
}
