package popularity

import (
	"context"

	"github.com/kailas-cloud/shelf/internal/domain/popular"
)

// Repository stores search-term counters.
type Repository interface {
	Record(ctx context.Context, term string) error
	Top(ctx context.Context, limit int) ([]popular.Search, error)
	Reset(ctx context.Context) error
}
