package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-jwtguard/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Has(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Bool(1), args.Error(2)
}

func (m *mockRepository) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockRepository) Forever(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *mockRepository) Forget(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPool(t *testing.T) (*cache.Pool, *cache.MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore(clock.Now)
	return cache.NewPool(store, cache.WithClock(clock.Now)), store, clock
}

func TestPool_GetItemMiss(t *testing.T) {
	pool, _, _ := newTestPool(t)

	item, err := pool.GetItem(context.Background(), "missing")
	require.NoError(t, err)

	assert.Equal(t, "missing", item.Key())
	assert.False(t, item.IsHit())
	assert.Nil(t, item.Get())
}

func TestPool_InvalidKeys(t *testing.T) {
	pool, _, _ := newTestPool(t)
	ctx := context.Background()

	for _, key := range []string{"a/b", "a{b", "a}b", "a(b", "a)b", `a\b`, "a@b", "a:b", ""} {
		t.Run(key, func(t *testing.T) {
			_, err := pool.GetItem(ctx, key)
			require.Error(t, err)
			assert.True(t, cache.IsInvalidKey(err))

			_, err = pool.HasItem(ctx, key)
			assert.True(t, cache.IsInvalidKey(err))

			_, err = pool.DeleteItem(ctx, key)
			assert.True(t, cache.IsInvalidKey(err))
		})
	}
}

func TestPool_SaveAndGet(t *testing.T) {
	pool, _, clock := newTestPool(t)
	ctx := context.Background()

	item, err := pool.GetItem(ctx, "token")
	require.NoError(t, err)
	item.Set("jwt token").ExpiresAt(clock.Now().Add(time.Minute))

	require.True(t, pool.Save(ctx, item))

	got, err := pool.GetItem(ctx, "token")
	require.NoError(t, err)
	assert.True(t, got.IsHit())
	assert.Equal(t, "jwt token", got.Get())

	ok, err := pool.HasItem(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	ok, err = pool.HasItem(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPool_SaveBytesWithoutExpiry(t *testing.T) {
	pool, _, clock := newTestPool(t)
	ctx := context.Background()

	payload := []byte(`{"keys":[]}`)
	require.True(t, pool.Save(ctx, cache.NewItem("jwks").Set(payload)))

	clock.Advance(365 * 24 * time.Hour)

	got, err := pool.GetItem(ctx, "jwks")
	require.NoError(t, err)
	assert.True(t, got.IsHit())
	assert.Equal(t, payload, got.Get())
}

func TestPool_SaveExpiredOnArrival(t *testing.T) {
	pool, _, clock := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.Save(ctx, cache.NewItem("k").Set("v")))

	expired := cache.NewItem("k").Set("new").ExpiresAt(clock.Now().Add(-time.Second))
	assert.False(t, pool.Save(ctx, expired))

	ok, err := pool.HasItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	now := cache.NewItem("k2").Set("v").ExpiresAt(clock.Now())
	assert.False(t, pool.Save(ctx, now))
}

func TestPool_SaveUsesExpiryLocation(t *testing.T) {
	repo := &mockRepository{}
	now := time.Date(2024, 4, 7, 2, 30, 0, 0, time.UTC)
	pool := cache.NewPool(repo, cache.WithClock(func() time.Time { return now }))

	sydney := time.FixedZone("AEST", 10*60*60)
	expiresAt := now.Add(90 * time.Second).In(sydney)

	repo.On("Put", mock.Anything, "k", mock.Anything, 90*time.Second).Return(nil).Once()

	assert.True(t, pool.Save(context.Background(), cache.NewItem("k").Set("v").ExpiresAt(expiresAt)))
	repo.AssertExpectations(t)
}

func TestPool_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	repo := &mockRepository{}
	repo.On("Get", mock.Anything, "k").Return(nil, false, boom)
	repo.On("Has", mock.Anything, "k").Return(false, boom)
	repo.On("Forever", mock.Anything, "k", mock.Anything).Return(boom)
	repo.On("Put", mock.Anything, "k", mock.Anything, mock.Anything).Return(boom)
	repo.On("Flush", mock.Anything).Return(boom)

	pool := cache.NewPool(repo)

	item, err := pool.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, item.IsHit())

	ok, err := pool.HasItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, pool.Save(ctx, cache.NewItem("k").Set("v")))
	assert.False(t, pool.Save(ctx, cache.NewItem("k").Set("v").ExpiresAfter(time.Hour)))
	assert.False(t, pool.Clear(ctx))
}

func TestPool_SaveDeferred(t *testing.T) {
	pool, store, clock := newTestPool(t)
	ctx := context.Background()

	item := cache.NewItem("k").Set("v1").ExpiresAt(clock.Now().Add(time.Minute))
	require.True(t, pool.SaveDeferred(item))
	assert.Equal(t, 0, store.Len())

	got, err := pool.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, got.IsHit())
	assert.Equal(t, "v1", got.Get())

	got.Set("changed")
	again, err := pool.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", again.Get(), "deferred items are returned as copies")

	require.True(t, pool.SaveDeferred(cache.NewItem("k").Set("v2")))
	assert.Equal(t, 1, pool.Pending())

	expired := cache.NewItem("old").Set("v").ExpiresAt(clock.Now().Add(-time.Second))
	assert.False(t, pool.SaveDeferred(expired))
	assert.Equal(t, 1, pool.Pending())

	require.True(t, pool.Commit(ctx))
	assert.Equal(t, 0, pool.Pending())

	got, err = pool.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Get())
}

func TestPool_HasItemDeferredExpiry(t *testing.T) {
	pool, _, clock := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.SaveDeferred(cache.NewItem("k").Set("v").ExpiresAt(clock.Now().Add(10*time.Second))))

	ok, err := pool.HasItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(20 * time.Second)
	ok, err = pool.HasItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPool_CommitEmptyIsIdempotent(t *testing.T) {
	pool, store, _ := newTestPool(t)
	ctx := context.Background()

	assert.True(t, pool.Commit(ctx))
	assert.True(t, pool.Commit(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestPool_CommitRoundTrip(t *testing.T) {
	pool, _, clock := newTestPool(t)
	ctx := context.Background()

	item := cache.NewItem("auth0_jwks_abc").Set([]byte("keys")).ExpiresAt(clock.Now().Add(30 * time.Minute))
	require.True(t, pool.SaveDeferred(item))
	require.True(t, pool.Commit(ctx))

	got, err := pool.GetItem(ctx, item.Key())
	require.NoError(t, err)
	assert.Equal(t, item.Get(), got.Get())
}

type tokenRecord struct {
	Audience string
	Scopes   []string
	Expires  int64
}

func TestPool_CommitRoundTripTyped(t *testing.T) {
	pool, _, _ := newTestPool(t)
	ctx := context.Background()

	issued := time.Date(2024, 3, 10, 12, 0, 0, 500, time.FixedZone("AEDT", 11*60*60))
	record := tokenRecord{Audience: "api", Scopes: []string{"read", "write"}, Expires: 1_700_000_000}

	require.True(t, pool.SaveDeferred(cache.NewItem("int").Set(42)))
	require.True(t, pool.SaveDeferred(cache.NewItem("slice").Set([]string{"x", "y"})))
	require.True(t, pool.SaveDeferred(cache.NewItem("map").Set(map[string]int{"a": 1})))
	require.True(t, pool.SaveDeferred(cache.NewItem("struct").Set(record)))
	require.True(t, pool.SaveDeferred(cache.NewItem("time").Set(issued)))
	require.True(t, pool.Commit(ctx))

	items, err := pool.GetItems(ctx, "int", "slice", "map", "struct", "time")
	require.NoError(t, err)

	var n int
	require.NoError(t, items["int"].Decode(&n))
	assert.Equal(t, 42, n)

	var slice []string
	require.NoError(t, items["slice"].Decode(&slice))
	assert.Equal(t, []string{"x", "y"}, slice)

	var m map[string]int
	require.NoError(t, items["map"].Decode(&m))
	assert.Equal(t, map[string]int{"a": 1}, m)

	var rec tokenRecord
	require.NoError(t, items["struct"].Decode(&rec))
	assert.Equal(t, record, rec)

	var ts time.Time
	require.NoError(t, items["time"].Decode(&ts))
	assert.True(t, issued.Equal(ts), "want %s, got %s", issued, ts)
}

func TestItem_DecodeDeferredAndMiss(t *testing.T) {
	pool, _, _ := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.SaveDeferred(cache.NewItem("k").Set([]string{"a"})))
	staged, err := pool.GetItem(ctx, "k")
	require.NoError(t, err)

	var got []string
	require.NoError(t, staged.Decode(&got))
	assert.Equal(t, []string{"a"}, got)

	miss, err := pool.GetItem(ctx, "absent")
	require.NoError(t, err)
	err = miss.Decode(&got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "miss")
}

func TestPool_ExpiresAfterUsesPoolClock(t *testing.T) {
	pool, store, clock := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.Save(ctx, cache.NewItem("saved").Set("v").ExpiresAfter(50*time.Second)))
	require.True(t, pool.SaveDeferred(cache.NewItem("staged").Set("v").ExpiresAfter(50*time.Second)))

	clock.Advance(30 * time.Second)
	ok, err := pool.HasItem(ctx, "staged")
	require.NoError(t, err)
	assert.True(t, ok)
	require.True(t, pool.Commit(ctx))

	clock.Advance(21 * time.Second)
	for _, key := range []string{"saved", "staged"} {
		ok, err := pool.HasItem(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	assert.Equal(t, 0, liveKeys(ctx, store, "saved", "staged"))
}

func liveKeys(ctx context.Context, store *cache.MemoryStore, keys ...string) int {
	n := 0
	for _, key := range keys {
		if ok, _ := store.Has(ctx, key); ok {
			n++
		}
	}
	return n
}

func TestPool_CommitPartialFailure(t *testing.T) {
	repo := &mockRepository{}
	pool := cache.NewPool(repo)
	ctx := context.Background()

	var order []string
	repo.On("Forever", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(nil)
	repo.On("Put", mock.Anything, "bad", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(errors.New("write failed"))

	require.True(t, pool.SaveDeferred(cache.NewItem("first").Set(1)))
	require.True(t, pool.SaveDeferred(cache.NewItem("bad").Set(2).ExpiresAfter(time.Hour)))
	require.True(t, pool.SaveDeferred(cache.NewItem("last").Set(3)))

	assert.False(t, pool.Commit(ctx))
	assert.Equal(t, []string{"first", "bad", "last"}, order)
	assert.Equal(t, 0, pool.Pending())
}

func TestPool_DeleteItems(t *testing.T) {
	pool, _, _ := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.Save(ctx, cache.NewItem("a").Set("1")))
	require.True(t, pool.Save(ctx, cache.NewItem("b").Set("2")))
	require.True(t, pool.SaveDeferred(cache.NewItem("c").Set("3")))

	_, err := pool.DeleteItems(ctx, "a", "bad/key")
	require.Error(t, err)
	assert.True(t, cache.IsInvalidKey(err))

	ok, err := pool.HasItem(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "no key is deleted when one is invalid")

	ok, err = pool.DeleteItems(ctx, "a", "b", "c", "never-set")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, key := range []string{"a", "b", "c"} {
		found, err := pool.HasItem(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
	assert.Equal(t, 0, pool.Pending())
}

func TestPool_DeleteItemAbsent(t *testing.T) {
	pool, _, _ := newTestPool(t)

	ok, err := pool.DeleteItem(context.Background(), "nothing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPool_Clear(t *testing.T) {
	pool, store, _ := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.Save(ctx, cache.NewItem("a").Set("1")))
	require.True(t, pool.SaveDeferred(cache.NewItem("b").Set("2")))

	assert.True(t, pool.Clear(ctx))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, pool.Pending())
}

func TestPool_CloseCommitsDeferred(t *testing.T) {
	pool, store, _ := newTestPool(t)

	require.True(t, pool.SaveDeferred(cache.NewItem("k").Set("v")))
	require.NoError(t, pool.Close())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, pool.Close())
}

func TestPool_CloseReportsFailedCommit(t *testing.T) {
	repo := &mockRepository{}
	repo.On("Forever", mock.Anything, "k", mock.Anything).Return(errors.New("down"))
	pool := cache.NewPool(repo)

	require.True(t, pool.SaveDeferred(cache.NewItem("k").Set("v")))
	err := pool.Close()
	require.Error(t, err)
	assert.Equal(t, 0, pool.Pending())
}

func TestPool_GetItems(t *testing.T) {
	pool, _, _ := newTestPool(t)
	ctx := context.Background()

	require.True(t, pool.Save(ctx, cache.NewItem("a").Set("1")))

	items, err := pool.GetItems(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items["a"].IsHit())
	assert.False(t, items["b"].IsHit())

	_, err = pool.GetItems(ctx, "a", "b:c")
	assert.True(t, cache.IsInvalidKey(err))
}

func TestSafeKey(t *testing.T) {
	assert.Equal(t, "auth0_jwt_myaudience", "auth0_jwt_"+cache.SafeKey("myaudience"))
	assert.Equal(t, "https___api.example.com_", cache.SafeKey("https://api.example.com/"))
	assert.NoError(t, cache.ValidateKey(cache.SafeKey("a{b}(c)/d\\e@f:g")))
}
