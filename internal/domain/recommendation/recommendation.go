// Package recommendation holds the personalized recommendation contract.
package recommendation

import (
	"strings"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/product"
)

// Source names the strategy that produced a response.
type Source string

// Known sources.
const (
	SourceCategoryAffinity   Source = "category_affinity"
	SourcePopularityFallback Source = "popularity_fallback"
)

// MaxHistoryItems bounds how many history entries a request may carry.
const MaxHistoryItems = 200

// Attributes is the catalog record nested under a recommended product.
type Attributes struct {
	ID                string   `json:"id"`
	ProductName       string   `json:"product_name"`
	Description       string   `json:"description"`
	Price             float64  `json:"price"`
	Category          string   `json:"category"`
	Images            []string `json:"images"`
	ProductSugarLevel string   `json:"product_sugar_level"`
	ProductTags       []string `json:"product_tags"`
	Store             string   `json:"store"`
	Promos            string   `json:"promos"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
	UpdatedBy         string   `json:"updated_by"`
	SellingPrice      float64  `json:"selling_price"`
}

// Product is a scored recommendation.
type Product struct {
	ID       string     `json:"id"`
	Score    float64    `json:"score"`
	Document Attributes `json:"document"`
}

// NewProduct builds a recommendation entry from a catalog item.
func NewProduct(it *product.Item, score float64) Product {
	images := it.Images
	if images == nil {
		images = []string{}
	}
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return Product{
		ID:    it.ID,
		Score: score,
		Document: Attributes{
			ID:                it.ID,
			ProductName:       it.Name,
			Description:       it.Description,
			Price:             it.Price(),
			Category:          it.PrimaryCategory(),
			Images:            images,
			ProductSugarLevel: it.SugarLevel,
			ProductTags:       tags,
			Store:             it.Store,
			Promos:            it.Promos,
			CreatedAt:         it.CreatedAt,
			UpdatedAt:         it.UpdatedAt,
			UpdatedBy:         it.UpdatedBy,
			SellingPrice:      it.SellingPrice,
		},
	}
}

// Response is the recommendation contract. HistoryUsed and Results are never null.
type Response struct {
	Success     bool      `json:"success"`
	UserID      string    `json:"user_id"`
	Source      Source    `json:"source"`
	HistoryUsed []string  `json:"history_used"`
	Results     []Product `json:"results"`
}

// Failed builds the response for a recommendation that could not be computed.
func Failed(userID string) Response {
	return Response{
		Success:     false,
		UserID:      userID,
		HistoryUsed: []string{},
		Results:     []Product{},
	}
}

// Request is a validated recommendation request.
type Request struct {
	userID  string
	history []string
}

// NewRequest validates the user id and normalizes history: entries are
// trimmed, blanks dropped and duplicates removed keeping the first occurrence.
// History is ordered most recent first.
func NewRequest(userID string, history []string) (Request, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Request{}, domain.NewValidationError("user_id", "is required")
	}
	if len(history) > MaxHistoryItems {
		return Request{}, domain.NewValidationError("history", "too many items")
	}

	seen := make(map[string]struct{}, len(history))
	clean := make([]string, 0, len(history))
	for _, h := range history {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		clean = append(clean, h)
	}
	return Request{userID: userID, history: clean}, nil
}

// UserID returns the requesting user.
func (r *Request) UserID() string { return r.userID }

// History returns the normalized history, most recent first.
func (r *Request) History() []string { return r.history }

// Considered returns at most limit most recent history items.
func (r *Request) Considered(limit int) []string {
	if limit <= 0 || len(r.history) <= limit {
		return r.history
	}
	return r.history[:limit]
}

// Fingerprint identifies the request for caching by user and considered history.
func (r *Request) Fingerprint(limit int) string {
	parts := append([]string{"recs", r.userID}, r.Considered(limit)...)
	return domain.Fingerprint(parts...)
}
