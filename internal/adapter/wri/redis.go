package wri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geo-risk:catalog:"

// RedisCache stores catalog entries in Redis as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a shared cache backed by the Redis server at addr.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached entry for id. A missing key is a miss, not an error.
func (r *RedisCache) Get(ctx context.Context, id string) (domain.DatasetInfo, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DatasetInfo{}, false, nil
	}
	if err != nil {
		return domain.DatasetInfo{}, false, fmt.Errorf("redis get: %w", err)
	}

	var info domain.DatasetInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.DatasetInfo{}, false, fmt.Errorf("decode cached dataset: %w", err)
	}
	return info, true, nil
}

// Set stores info under id for the configured TTL.
func (r *RedisCache) Set(ctx context.Context, id string, info domain.DatasetInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+id, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
