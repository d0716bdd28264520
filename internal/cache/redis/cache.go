// Package redis is the cache adapter: a JSON value store with TTLs,
// pattern invalidation, and breaker-guarded reads/writes that degrade
// to "cache miss" rather than ever surfacing an error to a caller.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/astropay/activityfeed/internal/breaker"
)

// Cache wraps a go-redis client behind the get/set/delete/delete-by-
// pattern contract the query service depends on. Failures are never
// returned to callers as hard errors for Get/Set — a degraded cache
// behaves exactly like an empty one, matching the original's
// "caching disabled" fallback posture.
type Cache struct {
	client  *goredis.Client
	breaker *breaker.Breaker
	log     zerolog.Logger
	ttl     time.Duration
}

// New builds a Cache from a redis:// URL.
func New(redisURL string, br *breaker.Breaker, log zerolog.Logger, defaultTTL time.Duration) (*Cache, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid REDIS_URL: %w", err)
	}
	return &Cache{
		client:  goredis.NewClient(opt),
		breaker: br,
		log:     log.With().Str("component", "cache").Logger(),
		ttl:     defaultTTL,
	}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get looks up key and unmarshals its JSON value into dest. It reports
// (found=false, err=nil) on a cache miss, a breaker-open circuit, or
// any Redis-level failure — only a JSON decode failure against an
// actually-present value is returned as an error, since that signals a
// real bug rather than an unavailable dependency.
func (c *Cache) Get(ctx context.Context, key string, dest any) (found bool, err error) {
	var raw string
	runErr := c.breaker.Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		v, err := c.client.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if runErr != nil {
		if breaker.IsOpen(runErr) {
			c.log.Warn().Str("key", key).Msg("cache get skipped: circuit breaker open")
		} else {
			c.log.Warn().Err(runErr).Str("key", key).Msg("cache get failed")
		}
		return false, nil
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("redis: decode cached value for %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with ttl (or the cache's default TTL if
// ttl is zero). Failures are logged and swallowed, never returned,
// matching the "cache write failures are never user-visible" contract.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	body, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set: failed to marshal value")
		return
	}
	runErr := c.breaker.Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return c.client.SetEx(ctx, key, body, ttl).Err()
	})
	if runErr != nil {
		if breaker.IsOpen(runErr) {
			c.log.Warn().Str("key", key).Msg("cache set skipped: circuit breaker open")
		} else {
			c.log.Warn().Err(runErr).Str("key", key).Msg("cache set failed")
		}
	}
}

// Delete removes a single key. Like the original, this does not go
// through the breaker — invalidation-on-write is best-effort and the
// original's delete() never consulted get_redis_breaker() either.
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// DeletePattern removes every key matching pattern. The original uses
// a blocking KEYS call; this adaptation uses SCAN to avoid stalling
// Redis on a large keyspace, an improvement this repo's Go idiom
// favors without changing the observable contract (best-effort,
// count of deleted keys, errors logged and swallowed).
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Str("pattern", pattern).Msg("cache delete pattern scan failed")
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("pattern", pattern).Msg("cache delete pattern failed")
		return 0
	}
	return int(n)
}
