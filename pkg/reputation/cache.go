package reputation

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long verdicts (including negative "no intel"
// verdicts) are reused before the provider is asked again.
const DefaultTTL = time.Hour

// Cache stores lookup results keyed by domain. A stored nil Result is a
// negative entry: "we asked, there was no intelligence" — it prevents
// hammering the provider with repeated failing lookups.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, value *Result)
}

// memoryCache is the default in-process TTL cache.
type memoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache returns an in-memory TTL cache. ttl <= 0 falls back to
// DefaultTTL.
func NewMemoryCache(ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryCache{c: gocache.New(ttl, 10*time.Minute)}
}

func (m *memoryCache) Get(_ context.Context, key string) (*Result, bool) {
	v, found := m.c.Get(key)
	if !found {
		return nil, false
	}
	res, _ := v.(*Result)
	return res, true
}

func (m *memoryCache) Set(_ context.Context, key string, value *Result) {
	m.c.Set(key, value, gocache.DefaultExpiration)
}

// redisCache shares verdicts across instances. Values are stored as
// JSON; a negative entry is the literal "null".
type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a Redis-backed cache using the given client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (r *redisCache) Get(ctx context.Context, key string) (*Result, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		// Missing key and transport errors look the same to callers:
		// not cached.
		return nil, false
	}

	var res *Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return res, true
}

func (r *redisCache) Set(ctx context.Context, key string, value *Result) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	// Best effort: a failed write just means the next lookup misses.
	_ = r.rdb.Set(ctx, key, raw, r.ttl).Err()
}
