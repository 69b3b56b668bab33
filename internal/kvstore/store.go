// Package kvstore abstracts access to the shared key-value/coordination
// store used by the rate limiter, response cache, and conversation memory.
// Grounded on the teacher's
// internal/orchestrator/dedupe.go (interface/impl split, ping-on-construct)
// and internal/skills/redis_cache.go (nil-safe methods, TTL set, cursor
// scan).
package kvstore

import (
	"context"
	"time"
)

// Store is the minimal surface every component needs from the shared
// cache/coordination store: string get/set with TTL, hash field
// increment/get/delete, key expiration, and cursor-based key scan.
//
// All implementations must translate transport errors into
// apperrors.ErrStoreUnavailable so callers can apply the fail-open/fail-soft
// policies spec.md §7 requires without type-switching on a driver error.
type Store interface {
	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error

	// Get returns the string value for key, and ok=false if the key is
	// absent (not an error).
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetEX sets key to value with the given TTL. ttl <= 0 means no
	// expiration.
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error

	// Del deletes a key unconditionally. Deleting a missing key is not an
	// error.
	Del(ctx context.Context, key string) error

	// Expire sets or refreshes a key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// HIncrBy atomically increments a hash field by delta and returns the
	// new value. Implementations must provide this atomically so rate-limit
	// admission is linearisable per identity (spec.md §5).
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// HGetAll returns all fields and values of a hash. A missing key
	// returns an empty, non-nil map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HDel deletes one or more hash fields.
	HDel(ctx context.Context, key string, fields ...string) error

	// Scan enumerates keys matching pattern, starting from cursor 0 and
	// continuing until the returned cursor is 0. batchSize is a hint for
	// the number of keys examined per round-trip, not a hard result cap.
	Scan(ctx context.Context, cursor uint64, pattern string, batchSize int64) (keys []string, nextCursor uint64, err error)

	// Close releases any pooled connections.
	Close() error
}
