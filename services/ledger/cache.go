package ledger

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const entitlementKeyPrefix = "entitlement:"

// EntitlementCache is an injected, bounded-TTL cache over entitlement reads.
// It is scoped to the service that owns it rather than being a process-wide
// singleton, so tests control its lifetime and invalidation directly.
type EntitlementCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEntitlementCache wraps a redis client with the given TTL bound.
func NewEntitlementCache(client *redis.Client, ttl time.Duration) *EntitlementCache {
	return &EntitlementCache{client: client, ttl: ttl}
}

// Get returns the cached entitlement and whether the key was present.
func (c *EntitlementCache) Get(ctx context.Context, studentID string) (bool, bool) {
	val, err := c.client.Get(ctx, entitlementKeyPrefix+studentID).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set stores the entitlement under the cache's TTL.
func (c *EntitlementCache) Set(ctx context.Context, studentID string, entitled bool) {
	val := "0"
	if entitled {
		val = "1"
	}
	c.client.Set(ctx, entitlementKeyPrefix+studentID, val, c.ttl)
}

// Invalidate drops the cached entitlement after a ledger write.
func (c *EntitlementCache) Invalidate(ctx context.Context, studentID string) {
	c.client.Del(ctx, entitlementKeyPrefix+studentID)
}
