package popularity

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/shelf/internal/db"
)

// memStore is an in-memory sorted set + hash for tests.
type memStore struct {
	counts map[string]float64
	seen   map[string]string
	err    error

	// hmgetFields counts fields requested through HMGet.
	hmgetFields int
}

func newMemStore() *memStore {
	return &memStore{counts: map[string]float64{}, seen: map[string]string{}}
}

func (m *memStore) ZIncrBy(_ context.Context, _, member string, incr float64) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[member] += incr
	return m.counts[member], nil
}

func (m *memStore) sorted() []db.ScoredMember {
	out := make([]db.ScoredMember, 0, len(m.counts))
	for k, v := range m.counts {
		out = append(out, db.ScoredMember{Member: k, Score: v})
	}
	// Redis REV order: score desc, member desc
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Member > out[j].Member
	})
	return out
}

func (m *memStore) ZRevRangeWithScores(_ context.Context, _ string, start, stop int64) ([]db.ScoredMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	all := m.sorted()
	if start >= int64(len(all)) {
		return nil, nil
	}
	if stop >= int64(len(all)) {
		stop = int64(len(all)) - 1
	}
	return all[start : stop+1], nil
}

func (m *memStore) HSet(_ context.Context, _ string, fields map[string]string) error {
	for k, v := range fields {
		m.seen[k] = v
	}
	return nil
}

func (m *memStore) HMGet(_ context.Context, _ string, fields ...string) (map[string]string, error) {
	m.hmgetFields += len(fields)
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := m.seen[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, _ ...string) error {
	m.counts = map[string]float64{}
	m.seen = map[string]string{}
	return nil
}

// newTestRepo returns a repo whose clock advances one second per Record.
func newTestRepo() (*Repo, *memStore) {
	ms := newMemStore()
	r := New(ms)
	tick := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return r, ms
}

func seenAt(sec int64) string { return strconv.FormatInt(time.Unix(sec, 0).UnixNano(), 10) }
