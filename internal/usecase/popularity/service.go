// Package popularity tracks how often search terms are used.
package popularity

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
)

// Tracker normalizes terms before counting and bounds Top queries.
type Tracker struct {
	repo     Repository
	maxLimit int
	records  prometheus.Counter
}

// New creates a tracker. records may be nil.
func New(repo Repository, maxLimit int, records prometheus.Counter) *Tracker {
	return &Tracker{repo: repo, maxLimit: maxLimit, records: records}
}

// Record counts one occurrence of term. Terms that normalize to empty are ignored.
func (t *Tracker) Record(ctx context.Context, term string) error {
	term = domain.NormalizeText(term)
	if term == "" {
		return nil
	}
	if err := t.repo.Record(ctx, term); err != nil {
		return fmt.Errorf("record search term: %w", err)
	}
	if t.records != nil {
		t.records.Inc()
	}
	return nil
}

// Top returns the most used terms, at most limit (clamped to the configured maximum).
func (t *Tracker) Top(ctx context.Context, limit int) ([]popular.Search, error) {
	if limit <= 0 {
		return nil, domain.NewValidationError("limit", "must be positive")
	}
	if t.maxLimit > 0 && limit > t.maxLimit {
		limit = t.maxLimit
	}
	top, err := t.repo.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: popular searches: %w", domain.ErrUpstream, err)
	}
	return top, nil
}

// Reset drops all counters.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset popularity: %w", err)
	}
	return nil
}
