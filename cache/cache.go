// Package cache defines the key-value interface all ephemeral auth state
// goes through, plus its Redis implementation.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned when a key does not exist.
	ErrMiss = errors.New("cache: key not found")
	// ErrUnavailable wraps backend connectivity failures. Callers decide
	// whether to fail open (performance caches) or closed (security state).
	ErrUnavailable = errors.New("cache: backend unavailable")
)

// Cache is the ephemeral store used for tenant/user snapshots, refresh
// token slots, the access-token blacklist, failed-login counters and
// lockout flags. Implementations must be safe for concurrent use, and
// Incr must be atomic.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}
