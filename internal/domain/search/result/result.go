// Package result holds the search response contract.
package result

import (
	"github.com/kailas-cloud/shelf/internal/domain/inspiration"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	"github.com/kailas-cloud/shelf/internal/domain/search/pagination"
)

// Results is the ranked product page plus optional inspiration cards.
type Results struct {
	Product          []product.Document     `json:"product"`
	SuperInspiration []inspiration.Document `json:"super_inspiration,omitempty"`
}

// Response is the search contract returned to clients and cached.
type Response struct {
	Success    bool                  `json:"success"`
	Query      string                `json:"query"`
	Results    Results               `json:"results"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Failed builds the response for a search that could not be completed:
// no products, no inspiration and zeroed pagination.
func Failed(query string) Response {
	return Response{
		Success: false,
		Query:   query,
		Results: Results{Product: []product.Document{}},
	}
}

// CacheClearResponse reports the outcome of a cache clear.
type CacheClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
