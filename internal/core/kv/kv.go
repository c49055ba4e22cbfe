package kv

import (
	"context"
	"time"
)

// KV is the interface for a persistent, TTL-capable key-value store.
// Keys are strings, values are JSON-serializable.
// Get on a missing or expired key returns an error wrapping sql.ErrNoRows.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteMatching removes every entry whose key contains substr. Substring
	// matching deliberately over-invalidates: a false positive costs one
	// extra remote call, a false negative would serve stale data.
	DeleteMatching(ctx context.Context, substr string) error

	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
}
