package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newDatabaseStore(t *testing.T) (*DatabaseStore, *testClock) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &testClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	return NewDatabaseStore(db).WithClock(clock.Now), clock
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store, clock := newDatabaseStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate:203.0.113.7:/api/session", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	clock.Advance(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rate:203.0.113.7:/api/session", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	clock.Advance(time.Minute)
	count, ttl, err = store.IncrementWithTTL(ctx, "rate:203.0.113.7:/api/session", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "an expired window restarts")
	require.Equal(t, time.Minute, ttl)
}

func TestDatabaseStoreGetExpired(t *testing.T) {
	store, clock := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fresh", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "stale", []byte("1"), time.Minute))
	clock.Advance(2 * time.Minute)

	value, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(value))

	_, ok, err = store.Get(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok)

	var count int64
	require.NoError(t, store.db.Model(&models.CacheEntry{}).Where("key = ?", "stale").Count(&count).Error)
	require.Zero(t, count, "expired entries are removed on read")
}

func TestDatabaseStoreSetIfAbsent(t *testing.T) {
	store, clock := newDatabaseStore(t)
	ctx := context.Background()

	stored, err := store.SetIfAbsent(ctx, "ticket:abc", []byte("admin-1"), time.Minute)
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = store.SetIfAbsent(ctx, "ticket:abc", []byte("admin-2"), time.Minute)
	require.NoError(t, err)
	require.False(t, stored)

	value, ok, err := store.Get(ctx, "ticket:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin-1", string(value))

	clock.Advance(2 * time.Minute)
	stored, err = store.SetIfAbsent(ctx, "ticket:abc", []byte("admin-3"), time.Minute)
	require.NoError(t, err)
	require.True(t, stored, "an expired claim can be taken again")
}

func TestDatabaseStoreDelete(t *testing.T) {
	store, _ := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Delete(ctx, "a", "missing"))
	require.NoError(t, store.Delete(ctx))

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store, clock := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "forever", []byte("x"), 0))
	require.NoError(t, store.Set(ctx, "live", []byte("x"), time.Hour))
	require.NoError(t, store.Set(ctx, "gone", []byte("x"), time.Minute))
	clock.Advance(10 * time.Minute)

	purged, err := store.PurgeExpired(ctx, clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining int64
	require.NoError(t, store.db.Model(&models.CacheEntry{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
}

func TestNilDatabaseStore(t *testing.T) {
	var store *DatabaseStore
	require.Nil(t, NewDatabaseStore(nil))

	_, err := store.SetIfAbsent(context.Background(), "k", nil, 0)
	require.Error(t, err)
	require.Error(t, store.Set(context.Background(), "k", nil, 0))
}
