package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	store, err := NewRedisClient(context.Background(), RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ratelimit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	count, ttl, err = store.IncrementWithTTL(ctx, "ratelimit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Greater(t, ttl, time.Duration(0))

	require.True(t, srv.Exists("registrar:ratelimit:1.2.3.4"))

	srv.FastForward(2 * time.Minute)

	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "ticket:abc")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "ticket:abc", []byte("admin-1"), 30*time.Second))

	value, ok, err := store.Get(ctx, "ticket:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin-1", string(value))
	require.Equal(t, 30*time.Second, srv.TTL("registrar:ticket:abc"))

	require.NoError(t, store.Delete(ctx, "ticket:abc"))
	_, ok, err = store.Get(ctx, "ticket:abc")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Delete(ctx))
}

func TestRedisStoreSetIfAbsent(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()

	stored, err := store.SetIfAbsent(ctx, "ticket:xyz", []byte("admin-1"), time.Minute)
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = store.SetIfAbsent(ctx, "ticket:xyz", []byte("admin-2"), time.Minute)
	require.NoError(t, err)
	require.False(t, stored)

	value, err := srv.Get("registrar:ticket:xyz")
	require.NoError(t, err)
	require.Equal(t, "admin-1", value)

	srv.FastForward(2 * time.Minute)
	stored, err = store.SetIfAbsent(ctx, "ticket:xyz", []byte("admin-3"), time.Minute)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestRedisStorePing(t *testing.T) {
	store, srv := newMiniredisStore(t)
	require.NoError(t, store.Ping(context.Background()))

	srv.Close()
	require.Error(t, store.Ping(context.Background()))
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := NewRedisClient(context.Background(), RedisConfig{Address: srv.Addr(), KeyPrefix: "philsca"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(context.Background(), "ticket:k", []byte("v"), time.Minute))
	require.True(t, srv.Exists("philsca:ticket:k"))
	require.False(t, srv.Exists(DefaultKeyPrefix+"ticket:k"))

	require.Equal(t, DefaultKeyPrefix, keyPrefix("  "))
	require.Equal(t, "a:", keyPrefix("a:"))
}
