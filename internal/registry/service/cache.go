package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is the short-TTL read cache the service fronts search/info with.
// Get reports whether it populated dest from a hit.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// NoCache is a Cache that never stores anything, used when no Redis
// address is configured.
type NoCache struct{}

func (NoCache) Get(context.Context, string, interface{}) bool           { return false }
func (NoCache) Set(context.Context, string, interface{}, time.Duration) {}
func (NoCache) Invalidate(context.Context, string)                      {}
func (NoCache) InvalidatePrefix(context.Context, string)                {}

// RedisCache is the production Cache, storing each entry as a JSON blob
// under a key namespaced to this service.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a RedisCache against addr ("host:port").
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "osmium:registry:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	c.client.Del(ctx, c.prefix+key)
}

// InvalidatePrefix drops every cached key under prefix. The registry's
// search cache is small enough (one entry per distinct query string seen
// recently) that a SCAN-based sweep on every publish is cheap.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) {
	var cursor uint64
	fullPrefix := c.prefix + prefix
	for {
		keys, next, err := c.client.Scan(ctx, cursor, fullPrefix+"*", 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			c.client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
}
