package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "sopo:count:"

// ICountCache stores listing counts for a short time. A miss or a Redis
// failure both read as "not cached"; callers always have the store to fall back on.
type ICountCache interface {
	Get(ctx context.Context, scope ...string) (int, bool)
	Set(ctx context.Context, n int, scope ...string)
	Flush(ctx context.Context) (int, error)
}

type redisCountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCountCache returns a Redis backed count cache.
func NewCountCache(rdb *redis.Client, ttl time.Duration) ICountCache {
	return &redisCountCache{rdb: rdb, ttl: ttl}
}

// CountKey builds the cache key of a count scope, e.g. sopo:count:nigeria:lagos:for-sale:.
func CountKey(scope ...string) string {
	parts := make([]string, len(scope))
	for i, s := range scope {
		parts[i] = strings.ToLower(s)
	}
	return countKeyPrefix + strings.Join(parts, ":")
}

func (c *redisCountCache) Get(ctx context.Context, scope ...string) (int, bool) {
	n, err := c.rdb.Get(ctx, CountKey(scope...)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Count cache read failed for %s: %v", CountKey(scope...), err)
		}
		return 0, false
	}
	return n, true
}

func (c *redisCountCache) Set(ctx context.Context, n int, scope ...string) {
	if err := c.rdb.Set(ctx, CountKey(scope...), n, c.ttl).Err(); err != nil {
		log.Printf("Count cache write failed for %s: %v", CountKey(scope...), err)
	}
}

// Flush drops every cached count and returns how many keys were removed.
func (c *redisCountCache) Flush(ctx context.Context) (int, error) {
	removed := 0
	iter := c.rdb.Scan(ctx, 0, countKeyPrefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			n, err := c.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete cached counts: %w", err)
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cached counts: %w", err)
	}
	if len(batch) > 0 {
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to delete cached counts: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}
