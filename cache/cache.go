// Package cache provides lookup caches for string translations and machine
// translation output.
package cache

import (
	"context"
	"time"

	"github.com/ZaguanLabs/gotlm"
)

// DefaultPrefix namespaces keys in shared backends.
const DefaultPrefix = "gotlm:"

// TranslationCache is a key/value cache of translated strings.
type TranslationCache interface {
	gotlm.TranslationCache
	// Delete evicts a key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Lister is implemented by caches whose contents can be enumerated.
type Lister interface {
	Entries(ctx context.Context) (map[string]string, error)
}

// Config selects and configures a cache backend.
type Config struct {
	RedisURL string        // Redis connection URL; empty selects the in-memory cache
	Prefix   string        // Key prefix for Redis (default DefaultPrefix)
	TTL      time.Duration // Zero means entries never expire
}

// New returns a Redis cache when cfg.RedisURL is set and an in-memory cache
// otherwise.
func New(ctx context.Context, cfg Config) (TranslationCache, error) {
	if cfg.RedisURL == "" {
		return NewInMemoryCache(cfg.TTL), nil
	}
	return NewRedisCache(ctx, cfg)
}
