package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/workboard/internal/core/kv"
	"github.com/colonyops/workboard/internal/data/db"
)

const cacheBucket = "cache"

// CacheStore implements kv.KV on the SQLite cache bucket. It holds gateway
// query results and ephemeral UI markers; every entry carries a TTL and is
// reclaimed lazily on the next access that finds it expired.
type CacheStore struct {
	db *db.DB
}

var _ kv.KV = (*CacheStore)(nil)

// NewCacheStore creates a new SQLite-backed result cache.
func NewCacheStore(database *db.DB) *CacheStore {
	return &CacheStore{db: database}
}

// Get retrieves and deserializes a value by key.
// Returns an error wrapping sql.ErrNoRows if the key does not exist.
// Expired entries are lazily deleted and treated as missing.
func (s *CacheStore) Get(ctx context.Context, key string, dest any) error {
	row, err := s.db.Queries().KVGet(ctx, cacheBucket, key)
	if err != nil {
		return fmt.Errorf("cache get %q: %w", key, err)
	}

	if isExpired(row) {
		_ = s.db.Queries().KVDelete(ctx, cacheBucket, key)
		return fmt.Errorf("cache get %q: %w", key, sql.ErrNoRows)
	}

	if err := json.Unmarshal(row.Value, dest); err != nil {
		return fmt.Errorf("cache get %q unmarshal: %w", key, err)
	}

	return nil
}

// Set stores a value with no expiry.
func (s *CacheStore) Set(ctx context.Context, key string, value any) error {
	return s.set(ctx, key, value, sql.NullInt64{})
}

// SetTTL stores a value that expires after the given duration.
func (s *CacheStore) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UnixNano()
	return s.set(ctx, key, value, sql.NullInt64{Int64: expiresAt, Valid: true})
}

// Delete removes a key.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Queries().KVDelete(ctx, cacheBucket, key); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

// DeleteMatching removes every cache entry whose key contains substr.
// Used when a user action implies the remote item just changed: all cached
// query results mentioning its URL must go, stale data being worse than an
// extra remote call.
func (s *CacheStore) DeleteMatching(ctx context.Context, substr string) error {
	if _, err := s.db.Queries().KVDeleteContaining(ctx, cacheBucket, substr); err != nil {
		return fmt.Errorf("cache delete matching %q: %w", substr, err)
	}
	return nil
}

// Has returns whether a key exists (and is not expired).
func (s *CacheStore) Has(ctx context.Context, key string) (bool, error) {
	row, err := s.db.Queries().KVGet(ctx, cacheBucket, key)
	if IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache has %q: %w", key, err)
	}
	if isExpired(row) {
		_ = s.db.Queries().KVDelete(ctx, cacheBucket, key)
		return false, nil
	}
	return true, nil
}

// ListKeys returns all non-expired keys in sorted order.
func (s *CacheStore) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := s.db.Queries().KVListKeys(ctx, cacheBucket, time.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("cache list keys: %w", err)
	}
	return keys, nil
}

// SweepExpired deletes all cache entries whose TTL has passed and returns how
// many were removed. Called from the sweep command, not a background loop.
func (s *CacheStore) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.db.Queries().KVSweepExpired(ctx, cacheBucket, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cache sweep expired: %w", err)
	}
	return n, nil
}

func (s *CacheStore) set(ctx context.Context, key string, value any, expiresAt sql.NullInt64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %q marshal: %w", key, err)
	}

	now := time.Now().UnixNano()
	if err := s.db.Queries().KVSet(ctx, db.KVSetParams{
		Bucket:    cacheBucket,
		Key:       key,
		Value:     data,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}

	return nil
}

func isExpired(row db.KvEntry) bool {
	return row.ExpiresAt.Valid && row.ExpiresAt.Int64 < time.Now().UnixNano()
}
