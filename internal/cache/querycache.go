package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/content-dashboard/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// QueryCache is the dashboard's shared query cache. Reads go through Fetch;
// mutations call Invalidate or InvalidateFor.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	table   InvalidationTable
	metrics *metrics.Metrics
	log     zerolog.Logger

	group singleflight.Group

	// epoch advances on every invalidation. A fetch started under an older
	// epoch returns its result but does not store it.
	mu    sync.Mutex
	epoch uint64
}

// Option configures a QueryCache
type Option func(*QueryCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *QueryCache) { c.ttl = ttl }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

func WithInvalidationTable(t InvalidationTable) Option {
	return func(c *QueryCache) { c.table = t }
}

// NewQueryCache wraps store
func NewQueryCache(store Store, log zerolog.Logger, opts ...Option) *QueryCache {
	c := &QueryCache{
		store: store,
		table: DefaultInvalidationTable(),
		log:   log.With().Str("component", "query-cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, calling fetch on a miss. Concurrent
// misses on the same key share one call. Errors are never cached.
func Fetch[T any](ctx context.Context, c *QueryCache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	encoded := key.String()

	raw, err := c.store.Get(ctx, encoded)
	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			c.metrics.RecordCacheHit(key.Query())
			return value, nil
		}
		c.log.Warn().Str("key", encoded).Msg("Discarding undecodable cache entry")
	case !errors.Is(err, ErrNotFound):
		// A broken backend degrades to uncached reads
		c.log.Warn().Err(err).Str("key", encoded).Msg("Cache read failed")
	}
	c.metrics.RecordCacheMiss(key.Query())

	epoch := c.currentEpoch()
	shared, err, _ := c.group.Do(fmt.Sprintf("%s@%d", encoded, epoch), func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", encoded, err)
		}
		c.storeIfCurrent(ctx, encoded, data, epoch)
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	// Each caller decodes its own copy
	var value T
	if err := json.Unmarshal(shared.([]byte), &value); err != nil {
		return zero, fmt.Errorf("decode %s: %w", encoded, err)
	}
	return value, nil
}

// Invalidate drops every entry under each prefix
func (c *QueryCache) Invalidate(ctx context.Context, prefixes ...Key) error {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	var errs []error
	for _, prefix := range prefixes {
		n, err := c.store.DeletePrefix(ctx, prefix.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", prefix, err))
			continue
		}
		c.metrics.RecordInvalidation(prefix.Query())
		c.log.Debug().Str("prefix", prefix.String()).Int("removed", n).Msg("Cache invalidated")
	}
	return errors.Join(errs...)
}

// InvalidateFor applies the invalidation table entry for op
func (c *QueryCache) InvalidateFor(ctx context.Context, op Operation, scope Scope) error {
	keys := c.table.Keys(op, scope)
	if len(keys) == 0 {
		return nil
	}
	return c.Invalidate(ctx, keys...)
}

// Close releases the backend
func (c *QueryCache) Close() error {
	return c.store.Close()
}

func (c *QueryCache) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// storeIfCurrent holds mu across the write so an invalidation either sees
// the entry and deletes it, or bumps the epoch first and the write is skipped.
func (c *QueryCache) storeIfCurrent(ctx context.Context, key string, data []byte, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		c.log.Debug().Str("key", key).Msg("Skipping store of result fetched before invalidation")
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
