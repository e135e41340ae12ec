// Package rediscache caches index value lookups in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Options configures the cache.
type Options struct {
	Prefix  string
	TTL     time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// DefaultOptions returns a five minute TTL under the "clausenav:" prefix.
func DefaultOptions() Options {
	return Options{
		Prefix: "clausenav:",
		TTL:    5 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Prefix) == "" {
		o.Prefix = "clausenav:"
	}
	if o.TTL == 0 {
		o.TTL = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", "rediscache")
	return o
}

func (o Options) validate() error {
	if o.TTL < 0 {
		return fmt.Errorf("rediscache: ttl must be >= 0")
	}
	return nil
}

// kv is the subset of Redis the cache needs.
type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache is a read-through cache in front of index value resolvers.
// Concurrent misses for the same key share one upstream lookup.
type Cache struct {
	store kv
	opts  Options
	group singleflight.Group
}

// New creates a cache over a go-redis client.
func New(rdb *redis.Client, opts Options) (*Cache, error) {
	if rdb == nil {
		return nil, fmt.Errorf("nil redis client")
	}
	return newCache(redisKV{rdb: rdb}, opts)
}

func newCache(store kv, opts Options) (*Cache, error) {
	normalized := opts.withDefaults()
	if err := normalized.validate(); err != nil {
		return nil, err
	}
	return &Cache{store: store, opts: normalized}, nil
}

// Wrap returns a resolver for field that consults the cache before next.
func (c *Cache) Wrap(field string, next clause.IndexValueResolver) clause.IndexValueResolver {
	return &cachedIndex{cache: c, field: strings.ToLower(strings.TrimSpace(field)), next: next}
}

// Invalidate drops every cached lookup for field.
func (c *Cache) Invalidate(ctx context.Context, field string) (int64, error) {
	pattern := c.opts.Prefix + strings.ToLower(strings.TrimSpace(field)) + ":*"
	n, err := c.store.DeleteByPattern(ctx, pattern)
	if err != nil {
		return n, fmt.Errorf("invalidate %s: %w", field, err)
	}
	return n, nil
}

func (c *Cache) lookup(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var values []string
		if jsonErr := json.Unmarshal([]byte(raw), &values); jsonErr == nil {
			c.opts.Metrics.CacheHit()
			return values, nil
		}
		c.opts.Logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.opts.Logger.Warn("cache read failed", "key", key, "error", err)
	}
	c.opts.Metrics.CacheMiss()

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		values, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []string{}
		}
		encoded, err := json.Marshal(values)
		if err == nil {
			if setErr := c.store.Set(loadCtx, key, string(encoded), c.opts.TTL); setErr != nil {
				c.opts.Logger.Warn("cache write failed", "key", key, "error", setErr)
			}
		}
		return values, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

type cachedIndex struct {
	cache *Cache
	field string
	next  clause.IndexValueResolver
}

func (i *cachedIndex) IndexedValues(ctx context.Context, s string) ([]string, error) {
	key := i.cache.opts.Prefix + i.field + ":s:" + s
	return i.cache.lookup(ctx, key, func(ctx context.Context) ([]string, error) {
		return i.next.IndexedValues(ctx, s)
	})
}

func (i *cachedIndex) IndexedValuesForID(ctx context.Context, id int64) ([]string, error) {
	key := i.cache.opts.Prefix + i.field + ":id:" + strconv.FormatInt(id, 10)
	return i.cache.lookup(ctx, key, func(ctx context.Context) ([]string, error) {
		return i.next.IndexedValuesForID(ctx, id)
	})
}

type redisKV struct {
	rdb *redis.Client
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	return r.rdb.Get(ctx, key).Result()
}

func (r redisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	return deleted, nil
}
