package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/repository/catalog"
)

// catalogFile is the seed input: products to embed and inspiration cards to index.
type catalogFile struct {
	Products     []productRow           `json:"products"`
	Inspirations []inspiration.Document `json:"inspirations"`
}

type productRow struct {
	ID            string   `json:"id"`
	Name          string   `json:"product_name"`
	Description   string   `json:"description"`
	ChunkText     string   `json:"chunk_text"`
	Categories    string   `json:"product_categories"`
	Tags          []string `json:"product_tags"`
	Store         string   `json:"store"`
	Promos        string   `json:"promos"`
	SugarLevel    string   `json:"product_sugar_level"`
	SellingPrice  float64  `json:"selling_price"`
	DiscountPrice float64  `json:"discount_price"`
	Images        []string `json:"images"`
	Popularity    float64  `json:"popularity"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	UpdatedBy     string   `json:"updated_by"`
}

func decodeCatalog(r io.Reader) (catalogFile, error) {
	var f catalogFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return catalogFile{}, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range f.Products {
		if strings.TrimSpace(f.Products[i].ID) == "" {
			return catalogFile{}, fmt.Errorf("product at position %d has no id", i)
		}
	}
	return f, nil
}

func (p *productRow) item() product.Item {
	return product.Item{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		ChunkText:     p.ChunkText,
		Categories:    p.Categories,
		Tags:          p.Tags,
		Store:         p.Store,
		Promos:        p.Promos,
		SugarLevel:    p.SugarLevel,
		SellingPrice:  p.SellingPrice,
		DiscountPrice: p.DiscountPrice,
		Images:        p.Images,
		Popularity:    p.Popularity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		UpdatedBy:     p.UpdatedBy,
	}
}

// embeddingText is what gets vectorized for a product: chunk_text when present,
// otherwise name, categories and description.
func (p *productRow) embeddingText() string {
	if t := strings.TrimSpace(p.ChunkText); t != "" {
		return t
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Categories, p.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}

// productRecords pairs rows with their vectors. vectors may be nil to write metadata only.
func productRecords(rows []productRow, vectors [][]float32) ([]catalog.ProductRecord, error) {
	if vectors != nil && len(vectors) != len(rows) {
		return nil, fmt.Errorf("got %d vectors for %d products", len(vectors), len(rows))
	}
	out := make([]catalog.ProductRecord, len(rows))
	for i := range rows {
		out[i].Item = rows[i].item()
		if vectors != nil {
			out[i].Vector = vectors[i]
		}
	}
	return out, nil
}

// inspirationRecords keys cards without an id by their position in the file.
func inspirationRecords(docs []inspiration.Document) []catalog.InspirationRecord {
	out := make([]catalog.InspirationRecord, len(docs))
	for i := range docs {
		out[i] = catalog.InspirationRecord{
			Key:      fmt.Sprintf("seed-%d", i),
			Document: docs[i],
		}
	}
	return out
}
