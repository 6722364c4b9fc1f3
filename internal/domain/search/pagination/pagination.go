// Package pagination slices ranked result lists into pages.
package pagination

import "github.com/kailas-cloud/shelf/internal/domain"

// Pagination describes a page within a ranked result list.
type Pagination struct {
	Page         int  `json:"page"`
	PageSize     int  `json:"page_size"`
	TotalResults int  `json:"total_results"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

// New computes page metadata for total results.
func New(page, pageSize, total int) (Pagination, error) {
	if page < 1 {
		return Pagination{}, domain.NewValidationError("page", "must be >= 1")
	}
	if pageSize < 1 {
		return Pagination{}, domain.NewValidationError("page_size", "must be >= 1")
	}
	if total < 0 {
		total = 0
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	p := Pagination{
		Page:         page,
		PageSize:     pageSize,
		TotalResults: total,
		TotalPages:   totalPages,
	}
	if total > 0 {
		p.HasNext = page < totalPages
		p.HasPrev = page > 1
	}
	return p, nil
}

// Paginate returns the items of the requested page. A page past the end
// yields an empty (non-nil) slice with true totals.
func Paginate[T any](items []T, page, pageSize int) ([]T, Pagination, error) {
	p, err := New(page, pageSize, len(items))
	if err != nil {
		return nil, Pagination{}, err
	}

	// compared before multiplying so huge page numbers cannot overflow the offset
	if page > p.TotalPages {
		return []T{}, p, nil
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(items))

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, p, nil
}
