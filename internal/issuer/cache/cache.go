package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "attestor/pkg/domain"
)

const keyPrefix = "issuer:authorized:"

// Cache is a Redis-backed read cache for issuer authorization checks, the
// hot path of every mint. Mutations invalidate eagerly; the TTL bounds
// staleness if an invalidation is lost.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached flag and whether the cache held an answer.
func (c *Cache) Get(ctx context.Context, issuer id.Identity) (authorized bool, found bool, err error) {
	val, err := c.client.Get(ctx, keyPrefix+issuer.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// Set records the flag for issuer.
func (c *Cache) Set(ctx context.Context, issuer id.Identity, authorized bool) error {
	val := "0"
	if authorized {
		val = "1"
	}
	return c.client.Set(ctx, keyPrefix+issuer.String(), val, c.ttl).Err()
}

// Invalidate drops the cached flag after a mutation.
func (c *Cache) Invalidate(ctx context.Context, issuer id.Identity) error {
	return c.client.Del(ctx, keyPrefix+issuer.String()).Err()
}
