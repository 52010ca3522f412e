package bunstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-jwtguard/cache"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupStore(t *testing.T) (*Store, *testClock, func()) {
	db, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := NewStore(bunDB, WithClock(clock.Now))
	require.NoError(t, store.CreateTable(context.Background()))

	cleanup := func() {
		_ = bunDB.Close()
	}

	return store, clock, cleanup
}

func TestStorePutAndGet(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("v1"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), val)

	require.NoError(t, store.Put(ctx, "k", []byte("v2"), time.Minute))
	val, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), val)
}

func TestStoreExpiry(t *testing.T) {
	store, clock, cleanup := setupStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "short", []byte("v"), 30*time.Second))
	require.NoError(t, store.Forever(ctx, "long", []byte("v")))

	clock.now = clock.now.Add(31 * time.Second)

	has, err := store.Has(ctx, "short")
	require.NoError(t, err)
	assert.False(t, has)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	has, err = store.Has(ctx, "long")
	require.NoError(t, err)
	assert.True(t, has)

	removed, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestStoreForgetAndFlush(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Forever(ctx, "a", []byte("1")))
	require.NoError(t, store.Forever(ctx, "b", []byte("2")))

	removed, err := store.Forget(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Forget(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.Flush(ctx))
	has, err := store.Has(ctx, "b")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStoreBacksPool(t *testing.T) {
	store, clock, cleanup := setupStore(t)
	defer cleanup()

	ctx := context.Background()
	pool := cache.NewPool(store, cache.WithClock(clock.Now))

	item, err := pool.GetItem(ctx, "auth0_jwks_abc")
	require.NoError(t, err)
	require.False(t, item.IsHit())

	item.Set([]byte(`{"keys":[]}`)).ExpiresAt(clock.now.Add(30 * time.Minute))
	require.True(t, pool.Save(ctx, item))

	got, err := pool.GetItem(ctx, "auth0_jwks_abc")
	require.NoError(t, err)
	assert.True(t, got.IsHit())
	assert.Equal(t, []byte(`{"keys":[]}`), got.Get())
}
