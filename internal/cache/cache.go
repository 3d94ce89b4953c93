package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the best-effort key-value store shared by the scoring
// pipeline. It is never authoritative: every miss must be recoverable
// by recomputing from the database.
type Cache interface {
	// Get unmarshals the cached value into dest and reports whether the
	// key was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error

	// Increment atomically bumps a monotonic counter and returns the new
	// value. Used as the hint-usage invalidation signal for leaderboards.
	Increment(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *redisCache) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Increment(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c *redisCache) Counter(ctx context.Context, key string) (int64, error) {
	value, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// memoryCache is a process-local fallback used when Redis is not
// configured, and by tests. Same contract as the Redis version.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	counters map[string]int64
}

func NewMemoryCache() Cache {
	return &memoryCache{
		entries:  make(map[string]memoryEntry),
		counters: make(map[string]int64),
	}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Remove(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
		delete(c.counters, key)
	}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	c.counters[key]++
	value := c.counters[key]
	c.mu.Unlock()
	return value, nil
}

func (c *memoryCache) Counter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	value := c.counters[key]
	c.mu.Unlock()
	return value, nil
}
