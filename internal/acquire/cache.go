package acquire

import (
	"context"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v8"
)

// Cache memoizes acquired payloads across requests so repeated synthesis runs
// for the same subject do not hammer slow collaborators. Keys are
// subject+sourceType; values expire on the strategy profile's validity
// window. The synthesis core itself never touches the cache: it stays
// stateless by design.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache returns an in-process TTL cache.
func NewMemoryCache() Cache {
	return &memoryCache{m: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memoryCache) Set(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

// redisCache adapts a Redis client to the Cache interface. Lookups use a
// short timeout so a slow Redis degrades to a cache miss instead of stalling
// acquisition.
type redisCache struct {
	r *redis.Client
}

const redisOpTimeout = 500 * time.Millisecond

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{r: client}
}

func (c *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = c.r.Set(ctx, key, val, ttl).Err()
}
