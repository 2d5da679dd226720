package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache entries in a shared keyspace.
const redisKeyPrefix = "mediacache:"

// RedisStore implements [CacheStore] on a Redis keyspace. Entries are
// stored as JSON under a namespaced key and never expire; eviction is
// explicit via Delete.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore for the given address and database.
func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// Ping verifies connectivity to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Get retrieves a cache entry by key.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	return &entry, nil
}

// Put inserts or replaces the entry for its key.
func (s *RedisStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+entry.Key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close closes the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
