package rolecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ward27:roles:"

var _ Backend = (*RedisBackend)(nil)

// RedisBackend stores role lists as JSON values with a server-side TTL.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("rolecache: redis client is required")
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Get(ctx context.Context, userID string) ([]string, bool, error) {
	raw, err := b.client.Get(ctx, redisKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		// Treat a corrupt entry as a miss so it gets rewritten.
		return nil, false, nil
	}
	return roles, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, userID string, roles []string, ttl time.Duration) error {
	data, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, redisKeyPrefix+userID, data, ttl).Err()
}

func (b *RedisBackend) Del(ctx context.Context, userID string) error {
	return b.client.Del(ctx, redisKeyPrefix+userID).Err()
}
