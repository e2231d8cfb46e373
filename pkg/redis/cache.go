package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes raw payloads (fetched CSV bodies) under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached payload
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || !c.client.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	return data, true, nil
}

// Set stores a payload with TTL
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), value, ttl).Err()
}

// Delete removes a cached payload
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Remember returns the cached payload for key or calls fn and caches its result.
// Errors from fn are never cached. Cache read/write failures fall through to fn.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if data, found, err := c.Get(ctx, key); err == nil && found {
		return data, nil
	}

	data, err := fn()
	if err != nil {
		return nil, err
	}

	_ = c.Set(ctx, key, data, ttl)
	return data, nil
}

// DatasetKey builds the cache key for a dataset identified by kind and location
func DatasetKey(kind, location string) string {
	sum := sha256.Sum256([]byte(location))
	return fmt.Sprintf("dataset:%s:%s", kind, hex.EncodeToString(sum[:8]))
}

// TTLDataset is the default memoization window for fetched CSVs
const TTLDataset = 10 * time.Minute
