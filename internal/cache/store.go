// Package cache provides the small key/value surface shared by the rate limiter
// and realtime tickets, backed by Redis or by the primary database.
package cache

import (
	"context"
	"time"
)

// Store is implemented by RedisStore and DatabaseStore. A zero or negative ttl
// means the entry never expires.
type Store interface {
	// IncrementWithTTL bumps a counter and reports the time left in its window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent stores value only when key is missing or expired and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
