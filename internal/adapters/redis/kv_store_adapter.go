package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// KVStoreAdapter implements domain.KVStore on Redis strings. Values never expire: the
// storefront state is durable until it is deleted.
type KVStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewKVStoreAdapter creates a new instance of KVStoreAdapter.
func NewKVStoreAdapter(redisClient *redis.Client, logger domain.Logger) *KVStoreAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewKVStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewKVStoreAdapter")
	}
	return &KVStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get returns the value stored under key. A missing key is reported through found, not err.
func (a *KVStoreAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := a.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "KV key not found", "key", key)
		return nil, false, nil
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to read key from Redis", "key", key, "error", err.Error())
		return nil, false, fmt.Errorf("redis GET for key '%s' failed: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key without expiry.
func (a *KVStoreAdapter) Set(ctx context.Context, key string, value []byte) error {
	if err := a.redisClient.Set(ctx, key, value, 0).Err(); err != nil {
		a.logger.Error(ctx, "Failed to write key to Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Stored key in Redis", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (a *KVStoreAdapter) Delete(ctx context.Context, key string) error {
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete key from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for key '%s' failed: %w", key, err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by the readiness probe.
func (a *KVStoreAdapter) Ping(ctx context.Context) error {
	return a.redisClient.Ping(ctx).Err()
}
