package popularity

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
)

// Keys holding the counters.
var (
	CountsKey = domain.KeyPrefix + "popular:counts"
	SeenKey   = domain.KeyPrefix + "popular:seen"
)

// store is the consumer interface for popularity counters (ISP).
type store interface {
	ZIncrBy(ctx context.Context, key, member string, incr float64) (float64, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]db.ScoredMember, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HMGet(ctx context.Context, key string, fields ...string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
}

// tieWindow is how many members past limit Top reads so that count ties
// straddling the cut can still be ordered by recency.
const tieWindow = 50

// Repo stores search-term occurrence counts in a sorted set
// and last-seen timestamps in a hash.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a popularity repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Record counts one occurrence of an already normalized term.
func (r *Repo) Record(ctx context.Context, term string) error {
	if _, err := r.store.ZIncrBy(ctx, CountsKey, term, 1); err != nil {
		return fmt.Errorf("increment %q: %w", term, err)
	}
	seen := strconv.FormatInt(r.now().UnixNano(), 10)
	if err := r.store.HSet(ctx, SeenKey, map[string]string{term: seen}); err != nil {
		return fmt.Errorf("touch %q: %w", term, err)
	}
	return nil
}

// Top returns at most limit terms by count desc, then last occurrence desc, then term asc.
// Only terms within tieWindow members past the cut compete for a tied slot.
func (r *Repo) Top(ctx context.Context, limit int) ([]popular.Search, error) {
	if limit <= 0 {
		return []popular.Search{}, nil
	}

	// Equal counts come back in reverse term order, so the members tied at the
	// cut are read a bounded window past it and re-ranked by recency below.
	members, err := r.store.ZRevRangeWithScores(ctx, CountsKey, 0, int64(limit+tieWindow-1))
	if err != nil {
		return nil, fmt.Errorf("top terms: %w", err)
	}
	if len(members) == 0 {
		return []popular.Search{}, nil
	}
	if len(members) > limit {
		boundary := members[limit-1].Score
		n := limit
		for n < len(members) && members[n].Score == boundary {
			n++
		}
		members = members[:n]
	}

	terms := make([]string, len(members))
	for i, m := range members {
		terms[i] = m.Member
	}
	seen, err := r.store.HMGet(ctx, SeenKey, terms...)
	if err != nil {
		return nil, fmt.Errorf("last seen: %w", err)
	}

	type entry struct {
		term  string
		count int64
		seen  int64
	}
	entries := make([]entry, len(members))
	for i, m := range members {
		ts, _ := strconv.ParseInt(seen[m.Member], 10, 64)
		entries[i] = entry{term: m.Member, count: int64(m.Score), seen: ts}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.seen != b.seen {
			return a.seen > b.seen
		}
		return a.term < b.term
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]popular.Search, len(entries))
	for i, e := range entries {
		out[i] = popular.Search{Term: e.term, Count: e.count}
	}
	return out, nil
}

// Reset drops all counters.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.Del(ctx, CountsKey, SeenKey); err != nil {
		return fmt.Errorf("reset popularity: %w", err)
	}
	return nil
}
