package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:jti:"

// Redis is the shared blacklist for multi-instance deployments. Key TTLs
// mirror the remaining token validity so Redis garbage-collects for us.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("blacklist: redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("blacklist: redis connection failed: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return fmt.Errorf("blacklist: token id cannot be empty")
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", clampTTL(ttl)).Err()
}

func (r *Redis) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist: redis error: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: Redis expires the keys itself.
func (r *Redis) PurgeExpired(ctx context.Context) error { return nil }
