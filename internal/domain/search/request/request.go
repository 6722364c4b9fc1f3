package request

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/search/filter"
)

// MaxQueryLength is the maximum allowed search query length in runes.
const MaxQueryLength = 512

// MaxPage is the highest page number accepted.
const MaxPage = 10000

// Request is a validated product search.
type Request struct {
	query    string
	page     int
	pageSize int
	filters  filter.Expression
}

// New validates a search. The query is trimmed and internal whitespace collapsed;
// case is preserved for display.
func New(query string, page, pageSize int, filters filter.Expression) (Request, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return Request{}, domain.NewValidationError("q", "is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, domain.NewValidationError("q", "too long (max "+strconv.Itoa(MaxQueryLength)+" chars)")
	}
	if page < 1 || page > MaxPage {
		return Request{}, domain.NewValidationError("page", "must be between 1 and "+strconv.Itoa(MaxPage))
	}
	if pageSize < 1 {
		return Request{}, domain.NewValidationError("page_size", "must be >= 1")
	}
	return Request{query: query, page: page, pageSize: pageSize, filters: filters}, nil
}

// Query returns the normalized query text.
func (r *Request) Query() string { return r.query }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PageSize returns the page size.
func (r *Request) PageSize() int { return r.pageSize }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// Fingerprint identifies the request for caching. Queries differing only in
// case or spacing share an entry.
func (r *Request) Fingerprint() string {
	return domain.Fingerprint(
		"search",
		domain.NormalizeText(r.query),
		strconv.Itoa(r.page),
		strconv.Itoa(r.pageSize),
		r.filters.Canonical(),
	)
}
