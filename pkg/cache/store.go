// Package cache implements the read-through, multi-tier guide cache: a
// TTL-bounded fast tier in front of the durable relational store, with
// synchronous generation on a full miss.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is the fast-tier key-value interface. It must be treated as fallible:
// connectivity errors are expected and callers degrade rather than fail.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
