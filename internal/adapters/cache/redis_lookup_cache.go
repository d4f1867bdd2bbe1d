package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vinco360/crm-replicator/internal/ports"
)

// RedisLookupCache memoizes resolved CRM record ids in Redis. Misses and
// backend errors both come back as ("", nil): the resolver falls through to
// the CRM either way, so a flaky cache only costs lookups.
type RedisLookupCache struct {
	client *redis.Client
}

func NewRedisLookupCache(client *redis.Client) *RedisLookupCache {
	return &RedisLookupCache{client: client}
}

var _ ports.LookupCache = (*RedisLookupCache)(nil)

func (c *RedisLookupCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil and transport errors alike degrade to a miss.
		return "", nil
	}
	return val, nil
}

func (c *RedisLookupCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisLookupCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
