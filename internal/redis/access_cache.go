package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const accessCachePrefix = "access:"

// AccessCache stores access decisions as "1"/"0" strings with a TTL.
type AccessCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAccessCache(client *redis.Client, ttl time.Duration) *AccessCache {
	return &AccessCache{client: client, ttl: ttl}
}

func accessKey(userID, versionID uuid.UUID) string {
	return accessCachePrefix + userID.String() + ":" + versionID.String()
}

func (c *AccessCache) Get(ctx context.Context, userID, versionID uuid.UUID) (bool, bool, error) {
	val, err := c.client.Get(ctx, accessKey(userID, versionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *AccessCache) Set(ctx context.Context, userID, versionID uuid.UUID, allowed bool) error {
	val := "0"
	if allowed {
		val = "1"
	}
	return c.client.Set(ctx, accessKey(userID, versionID), val, c.ttl).Err()
}

func (c *AccessCache) Invalidate(ctx context.Context, userID, versionID uuid.UUID) error {
	return c.client.Del(ctx, accessKey(userID, versionID)).Err()
}
