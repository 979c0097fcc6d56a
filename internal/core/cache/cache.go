// Package cache defines the byte cache used in front of the entity store.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Type represents the cache backend.
type Type string

const (
	// TypeNone disables caching.
	TypeNone Type = "none"
	// TypeRedis represents a Redis cache.
	TypeRedis Type = "redis"
)

// ParseType maps a configuration value to a Type. Empty means TypeNone.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeNone:
		return TypeNone, nil
	case TypeRedis:
		return TypeRedis, nil
	default:
		return "", fmt.Errorf("unsupported cache type: %s", s)
	}
}

// Client defines the cache operations. Keys are relative to the client's
// namespace; implementations apply their own prefix.
type Client interface {
	// Get returns nil without error when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl uses the client default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes every key matching a glob pattern and returns
	// the number removed.
	DeletePattern(ctx context.Context, pattern string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
