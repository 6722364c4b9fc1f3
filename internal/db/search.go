package db

import "github.com/kailas-cloud/shelf/internal/domain/search/filter"

// DefaultVectorField is the hash field holding embeddings.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to DefaultVectorField
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Fields       []string // restrict matching to these TEXT fields; empty means all
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for filtered, optionally sorted listing.
type ListQuery struct {
	IndexName    string
	Query        string // raw FT query; empty means "*"
	Filters      filter.Expression
	Offset       int
	Limit        int
	SortBy       string
	Desc         bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
