package catalog

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/product"
)

// buildProductFields converts a catalog item into a flat map for HSET.
func buildProductFields(it *product.Item, vector []float32) map[string]string {
	images, _ := json.Marshal(nonNil(it.Images)) //nolint:errchkjson // []string always encodes
	m := map[string]string{
		fieldID:            it.ID,
		fieldName:          it.Name,
		fieldDescription:   it.Description,
		fieldChunkText:     it.ChunkText,
		fieldCategories:    it.Categories,
		fieldCategory:      strings.Join(it.CategoryList(), tagSeparator),
		fieldTags:          strings.Join(it.Tags, tagSeparator),
		fieldStore:         it.Store,
		fieldPromos:        it.Promos,
		fieldSugarLevel:    it.SugarLevel,
		fieldSellingPrice:  formatFloat(it.SellingPrice),
		fieldDiscountPrice: formatFloat(it.DiscountPrice),
		fieldPrice:         formatFloat(it.Price()),
		fieldImages:        string(images),
		fieldPopularity:    formatFloat(it.Popularity),
		fieldCreatedAt:     it.CreatedAt,
		fieldUpdatedAt:     it.UpdatedAt,
		fieldUpdatedBy:     it.UpdatedBy,
	}
	if len(vector) > 0 {
		m[db.DefaultVectorField] = db.EncodeVector(vector)
	}
	return m
}

// parseProductFields converts a flat hash back into a catalog item.
// The hash id field wins over the key suffix when present.
func parseProductFields(keyID string, m map[string]string) product.Item {
	id := m[fieldID]
	if id == "" {
		id = keyID
	}
	return product.Item{
		ID:            id,
		Name:          m[fieldName],
		Description:   m[fieldDescription],
		ChunkText:     m[fieldChunkText],
		Categories:    m[fieldCategories],
		Tags:          splitList(m[fieldTags]),
		Store:         m[fieldStore],
		Promos:        m[fieldPromos],
		SugarLevel:    m[fieldSugarLevel],
		SellingPrice:  parseFloat(m[fieldSellingPrice]),
		DiscountPrice: parseFloat(m[fieldDiscountPrice]),
		Images:        parseImages(m[fieldImages]),
		Popularity:    parseFloat(m[fieldPopularity]),
		CreatedAt:     m[fieldCreatedAt],
		UpdatedAt:     m[fieldUpdatedAt],
		UpdatedBy:     m[fieldUpdatedBy],
	}
}

// buildInspirationFields converts an inspiration card into a flat map for HSET.
// Absent optionals are not written.
func buildInspirationFields(a *inspiration.Attributes, id *string) map[string]string {
	m := map[string]string{
		fieldTitle:       a.Title,
		fieldDescription: a.Description,
		fieldChunkText:   a.ChunkText,
		fieldImage:       a.Image,
	}
	if id != nil {
		m[fieldID] = *id
	}
	putOptional(m, fieldCategory, a.Category)
	putOptional(m, fieldBannerContent, a.BannerContent)
	putOptional(m, fieldBannerShareThumbnail, a.BannerShareThumbnail)
	putOptional(m, fieldDifficulty, a.Difficulty)
	putOptional(m, fieldPortion, a.Portion)
	if a.CookTime != nil {
		m[fieldCookTime] = formatFloat(*a.CookTime)
	}
	return m
}

// parseInspirationFields converts a BM25 hit into an inspiration document.
func parseInspirationFields(score float64, m map[string]string) inspiration.Document {
	doc := inspiration.Document{
		ID:    optional(m, fieldID),
		Score: score,
		Document: inspiration.Attributes{
			BannerContent:        optional(m, fieldBannerContent),
			BannerShareThumbnail: optional(m, fieldBannerShareThumbnail),
			Category:             optional(m, fieldCategory),
			ChunkText:            m[fieldChunkText],
			Description:          m[fieldDescription],
			Difficulty:           optional(m, fieldDifficulty),
			Image:                m[fieldImage],
			Portion:              optional(m, fieldPortion),
			Title:                m[fieldTitle],
		},
	}
	if v, ok := m[fieldCookTime]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			doc.Document.CookTime = &f
		}
	}
	return doc
}

func putOptional(m map[string]string, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func optional(m map[string]string, key string) *string {
	v, ok := m[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

func parseImages(s string) []string {
	if s == "" {
		return []string{}
	}
	var images []string
	if err := json.Unmarshal([]byte(s), &images); err != nil {
		// legacy rows hold a single URL
		return []string{s}
	}
	return nonNil(images)
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, tagSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
