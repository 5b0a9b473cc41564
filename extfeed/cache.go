package extfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "extfeed:items"

// Cache stores encoded feed snapshots with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	val     []byte
	expires time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry), now: time.Now}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.val, true, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memEntry{val: val, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// RedisCache is a Cache shared between instances through Redis.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects using a redis:// URL.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, val, ttl).Err()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}

// Cached serves a Source through a Cache. Failed fetches are never cached,
// and a broken cache only costs a direct fetch.
type Cached struct {
	Src   Source
	Cache Cache
	TTL   time.Duration
	// OnCacheError observes cache failures; may be nil.
	OnCacheError func(error)
}

// Fetch implements Source.
func (c *Cached) Fetch(ctx context.Context) ([]Item, error) {
	if b, ok, err := c.Cache.Get(ctx, cacheKey); err != nil {
		c.cacheErr(err)
	} else if ok {
		var items []Item
		if err := json.Unmarshal(b, &items); err == nil {
			return items, nil
		}
	}
	items, err := c.Src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(items); err == nil {
		if err := c.Cache.Set(ctx, cacheKey, b, c.TTL); err != nil {
			c.cacheErr(err)
		}
	}
	return items, nil
}

func (c *Cached) cacheErr(err error) {
	if c.OnCacheError != nil {
		c.OnCacheError(err)
	}
}
