// Package cache keeps query results in Redis between ingestion runs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by this service
const KeyPrefix = "kbo:"

// Cache stores JSON-encoded query results
type Cache interface {
	// Get decodes the value at key into dst, reporting whether it was present
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// Key helpers
func MatchesByDateKey(prefix string) string { return "matches:date:" + prefix }
func MatchKey(code string) string           { return "match:" + code }
func ScoreboardKey(code string) string      { return "match:" + code + ":scoreboard" }
func BoxScoreKey(code string) string        { return "match:" + code + ":boxscore" }

// DateKeys lists every match-day key a change on date (YYYY-MM-DD) can affect
func DateKeys(date string) []string {
	keys := []string{MatchesByDateKey(date)}
	if len(date) >= 7 {
		keys = append(keys, MatchesByDateKey(date[:7]))
	}
	if len(date) >= 4 {
		keys = append(keys, MatchesByDateKey(date[:4]))
	}
	return keys
}

// RedisCache is a Cache backed by a Redis server
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	return c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = KeyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Delete(context.Context, ...string) error        { return nil }
func (Noop) Ping(context.Context) error                     { return nil }
