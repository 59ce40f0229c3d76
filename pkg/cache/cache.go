// Package cache provides the key/value cache handle injected into services.
// A handle built without a backing store behaves as an always-miss cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or the cache is not configured.
var ErrMiss = errors.New("cache miss")

// Cache is a string key/value store with per-entry TTLs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Enabled() bool
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Noop is the "not configured" cache: reads miss, writes are dropped.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrMiss }

func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }

func (Noop) Enabled() bool { return false }

type redisCache struct {
	store store
}

// New returns a Redis-backed cache, or Noop when s is nil.
func New(s store) Cache {
	if isNil(s) {
		return Noop{}
	}
	return &redisCache{store: s}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.store.Set(ctx, key, value, ttl)
}

func (c *redisCache) Enabled() bool { return true }

// GetJSON decodes a cached JSON document into dest.
func GetJSON(ctx context.Context, c Cache, key string, dest any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Set(ctx, key, string(raw), ttl)
}
