package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shelf/internal/db"
)

// ZIncrBy atomically increments member's score and returns the new score.
func (s *Store) ZIncrBy(ctx context.Context, key, member string, incr float64) (float64, error) {
	cmd := s.b().Zincrby().Key(key).Increment(incr).Member(member).Build()
	score, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZIncrBy, Err: err}
	}
	return score, nil
}

// ZRevRangeWithScores returns members ranked start..stop by descending score.
// Equal scores come back in reverse lexicographic order; callers re-sort ties.
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]db.ScoredMember, error) {
	cmd := s.b().Zrange().Key(key).
		Min(strconv.FormatInt(start, 10)).
		Max(strconv.FormatInt(stop, 10)).
		Rev().Withscores().Build()
	return s.zscores(ctx, cmd)
}

func (s *Store) zscores(ctx context.Context, cmd rueidis.Completed) ([]db.ScoredMember, error) {
	zs, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	out := make([]db.ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}
