package resultcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain"
)

// Cache namespaces.
const (
	NamespaceSearch = "search"
	NamespaceRecs   = "recs"
)

var keyPrefix = domain.KeyPrefix + "cache:"

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Unlink(ctx context.Context, keys ...string) (int, error)
}

// Cache stores whole encoded responses keyed by request fingerprint.
// Backend failures degrade to misses and are never returned to readers.
type Cache struct {
	store          store
	group          singleflight.Group
	mu             sync.Mutex
	flights        map[string]*flight
	computeTimeout time.Duration
	cacheTotal     *prometheus.CounterVec
	logger         *zap.Logger
}

// New creates a result cache.
// cacheTotal carries labels "namespace" and "result" (hit/miss/error); nil disables counting.
// computeTimeout bounds a shared computation that outlives its initiating caller.
func New(s store, computeTimeout time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:          s,
		flights:        make(map[string]*flight),
		computeTimeout: computeTimeout,
		cacheTotal:     cacheTotal,
		logger:         logger,
	}
}

// Key returns the storage key of an entry.
func Key(namespace, fingerprint string) string {
	return keyPrefix + namespace + ":" + fingerprint
}

// Get returns the stored payload. Expired, missing and unreadable entries are misses.
func (c *Cache) Get(ctx context.Context, namespace, fingerprint string) ([]byte, bool) {
	data, err := c.store.Get(ctx, Key(namespace, fingerprint))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.inc(namespace, "miss")
			return nil, false
		}
		c.inc(namespace, "error")
		c.logger.Warn("Result cache read failed",
			zap.String("namespace", namespace),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrCache, err)),
		)
		return nil, false
	}
	if len(data) == 0 {
		c.inc(namespace, "miss")
		return nil, false
	}
	c.inc(namespace, "hit")
	return data, true
}

// Put publishes a whole entry in one write. Failures are logged only.
func (c *Cache) Put(ctx context.Context, namespace, fingerprint string, payload []byte, ttl time.Duration) {
	if err := c.store.SetWithTTL(ctx, Key(namespace, fingerprint), payload, ttl); err != nil {
		c.inc(namespace, "error")
		c.logger.Warn("Result cache write failed",
			zap.String("namespace", namespace),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrCache, err)),
		)
	}
}

// Clear removes every cached entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("%w: scan: %w", domain.ErrCache, err)
	}
	n, err := c.store.Unlink(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("%w: unlink: %w", domain.ErrCache, err)
	}
	return n, nil
}

// flight is a shared computation and the number of callers waiting on it.
type flight struct {
	ctx     context.Context //nolint:containedctx // outlives any single caller
	cancel  context.CancelFunc
	waiters int
}

// GetOrCompute returns the cached payload or runs fn once per key across
// concurrent callers, storing its result when fn succeeds. The bool reports a hit.
// A caller whose ctx ends stops waiting; the shared computation is cancelled
// once no caller is waiting for it. A panic in fn is returned as an error.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	namespace, fingerprint string,
	ttl time.Duration,
	fn func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	if data, ok := c.Get(ctx, namespace, fingerprint); ok {
		return data, true, nil
	}

	key := Key(namespace, fingerprint)
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (val any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("compute %s result: panic: %v", namespace, r)
			}
		}()

		data, err := fn(f.ctx)
		if err != nil {
			return nil, err
		}
		c.Put(f.ctx, namespace, fingerprint, data, ttl)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("wait for %s result: %w", namespace, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		data, _ := res.Val.([]byte)
		return data, false, nil
	}
}

func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := c.computeContext(ctx)
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if c.flights[key] == f {
		delete(c.flights, key)
		// later callers start a fresh computation instead of joining a cancelled one
		c.group.Forget(key)
	}
	f.cancel()
}

// Computer is the part of Cache that Load builds on.
type Computer interface {
	GetOrCompute(
		ctx context.Context, namespace, fingerprint string, ttl time.Duration,
		fn func(ctx context.Context) ([]byte, error),
	) ([]byte, bool, error)
	Put(ctx context.Context, namespace, fingerprint string, payload []byte, ttl time.Duration)
}

// Load is GetOrCompute over JSON-encoded values. An undecodable entry is recomputed
// and overwritten.
func Load[T any](
	ctx context.Context,
	c Computer,
	namespace, fingerprint string,
	ttl time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, bool, error) {
	var v T
	data, hit, err := c.GetOrCompute(ctx, namespace, fingerprint, ttl, func(ctx context.Context) ([]byte, error) {
		computed, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(computed)
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", namespace, err)
		}
		return encoded, nil
	})
	if err != nil {
		return v, false, err
	}
	err = json.Unmarshal(data, &v)
	if err == nil {
		return v, hit, nil
	}
	if !hit {
		return v, false, fmt.Errorf("decode %s result: %w", namespace, err)
	}

	var fresh T
	fresh, err = fn(ctx)
	if err != nil {
		return fresh, false, err
	}
	if encoded, err := json.Marshal(fresh); err == nil {
		c.Put(ctx, namespace, fingerprint, encoded, ttl)
	}
	return fresh, false, nil
}

func (c *Cache) computeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.computeTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.computeTimeout)
}

func (c *Cache) inc(namespace, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(namespace, result).Inc()
	}
}
