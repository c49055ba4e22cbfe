package stores

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/workboard/internal/data/db"
)

func newTestCacheStore(t *testing.T) *CacheStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewCacheStore(database)
}

func TestCacheStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	type payload struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	err := store.Set(ctx, "test-key", payload{Name: "hello", Value: 42})
	require.NoError(t, err)

	var got payload
	err = store.Get(ctx, "test-key", &got)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, 42, got.Value)
}

func TestCacheStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	var v string
	err := store.Get(ctx, "nonexistent", &v)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCacheStore_SetOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.Set(ctx, "key", "first"))
	require.NoError(t, store.Set(ctx, "key", "second"))

	var got string
	require.NoError(t, store.Get(ctx, "key", &got))
	assert.Equal(t, "second", got)
}

func TestCacheStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.Set(ctx, "key", "value"))
	require.NoError(t, store.Delete(ctx, "key"))

	has, err := store.Has(ctx, "key")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheStore_SetTTLExpires(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.SetTTL(ctx, "short", "value", time.Nanosecond))
	time.Sleep(10 * time.Millisecond)

	var got string
	err := store.Get(ctx, "short", &got)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	has, err := store.Has(ctx, "short")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheStore_SetTTLStillFresh(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.SetTTL(ctx, "fresh", "value", time.Hour))

	var got string
	require.NoError(t, store.Get(ctx, "fresh", &got))
	assert.Equal(t, "value", got)
}

func TestCacheStore_DeleteMatching(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	url := "https://github.com/acme/widgets/pull/7"
	require.NoError(t, store.Set(ctx, "gh.pr."+url+".fields", "detail"))
	require.NoError(t, store.Set(ctx, "avoid-cache:"+url, true))
	require.NoError(t, store.Set(ctx, "gh.search.authored.octocat.fields", "search"))

	require.NoError(t, store.DeleteMatching(ctx, url))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gh.search.authored.octocat.fields"}, keys)
}

func TestCacheStore_ListKeysSkipsExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.Set(ctx, "b-key", "v"))
	require.NoError(t, store.Set(ctx, "a-key", "v"))
	require.NoError(t, store.SetTTL(ctx, "expired", "v", time.Nanosecond))
	time.Sleep(10 * time.Millisecond)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-key", "b-key"}, keys)
}

func TestCacheStore_SweepExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestCacheStore(t)

	require.NoError(t, store.SetTTL(ctx, "gone-1", "v", time.Nanosecond))
	require.NoError(t, store.SetTTL(ctx, "gone-2", "v", time.Nanosecond))
	require.NoError(t, store.Set(ctx, "keep", "v"))
	time.Sleep(10 * time.Millisecond)

	n, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, keys)
}
