package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client, "space:")
}

func TestRedisKV_GetSet(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "apod")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "apod", []byte(`{"title":"M31"}`), time.Minute))
	assert.True(t, mr.Exists("space:apod"))

	got, err := kv.Get(ctx, "apod")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"M31"}`, string(got))

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "apod")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_Delete(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, kv.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, kv.Delete(ctx, "a", "b"))
	assert.False(t, mr.Exists("space:a"))
	assert.False(t, mr.Exists("space:b"))
	assert.NoError(t, kv.Delete(ctx))
}
