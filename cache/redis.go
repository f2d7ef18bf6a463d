package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/gotlm"
)

const redisTimeout = 2 * time.Second

// RedisCache stores entries in Redis under a key prefix.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisCache connects to cfg.RedisURL and checks the connection.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, &gotlm.CacheError{Message: "parsing redis url", Cause: err}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, &gotlm.CacheError{Message: "connecting to redis", Cause: err}
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.Prefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{
		client: client,
		ttl:    max(ttl, 0),
		prefix: prefix,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for errors that Get reports as misses.
func (c *RedisCache) WithLogger(logger *slog.Logger) *RedisCache {
	c.logger = logger
	return c
}

// Get returns the value for key. Redis failures are logged and reported as
// misses so that a cache outage only costs lookups.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("redis get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return &gotlm.CacheError{Message: fmt.Sprintf("setting %s", key), Cause: err}
	}
	return nil
}

func (c *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return &gotlm.CacheError{Message: fmt.Sprintf("deleting %s", key), Cause: err}
	}
	return nil
}

// Entries scans every key under the prefix. Keys that vanish during the scan
// are skipped.
func (c *RedisCache) Entries(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := c.client.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, &gotlm.CacheError{Message: "reading " + full, Cause: err}
		}
		out[strings.TrimPrefix(full, c.prefix)] = val
	}
	if err := iter.Err(); err != nil {
		return nil, &gotlm.CacheError{Message: "scanning keys", Cause: err}
	}
	return out, nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ TranslationCache = (*RedisCache)(nil)
	_ Lister           = (*RedisCache)(nil)
)
