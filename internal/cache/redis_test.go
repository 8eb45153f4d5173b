package cache

import (
	"context"
	"testing"
	"time"

	"github.com/courier-next/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStoreIsNoop(t *testing.T) {
	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: false, Prefix: "ignored"}))
	assert.False(t, Enabled())
	assert.Nil(t, Client())

	ctx := context.Background()
	store := Default()
	require.NoError(t, store.Set(ctx, "geo:x", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, store.Del(ctx, "geo:x"))

	var out map[string]string
	hit, err := store.Get(ctx, "geo:x", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, Close())
}

func TestNilStoreIsNoop(t *testing.T) {
	var store *Store
	assert.False(t, store.Enabled())
	assert.NoError(t, store.Close())
	hit, err := store.Get(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestStoreKey(t *testing.T) {
	cases := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: " geo:abc ", want: "courier:geo:abc"},
		{prefix: "parcel-dev:", key: "geo:abc", want: "parcel-dev:geo:abc"},
		{prefix: "courier", key: "", want: "courier"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewStore(nil, tc.prefix).Key(tc.key))
	}
}

func TestInitRedisUsesConfiguredPrefix(t *testing.T) {
	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Prefix: "courier-test"}))
	t.Cleanup(func() { _ = Close() })

	assert.True(t, Enabled())
	assert.Equal(t, "courier-test", Prefix())
	assert.Equal(t, "127.0.0.1:1", Client().Options().Addr)
}

func TestStoreGetSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	store := NewStore(client, "courier")
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Get(context.Background(), "geo:x", &struct{}{})
	assert.Error(t, err)
}
