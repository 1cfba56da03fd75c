package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCacheTest(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewRedisCache(context.Background(), Config{
		RedisURL:  "redis://" + mr.Addr(),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := setupRedisCacheTest(t)

	v, err := c.Get(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := setupRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "chapter-admins:school:S1", []byte(`[]`), time.Minute))

	v, err := c.Get(ctx, "chapter-admins:school:S1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v)

	assert.True(t, mr.Exists("test:chapter-admins:school:S1"))
	assert.Equal(t, time.Minute, mr.TTL("test:chapter-admins:school:S1"))
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := setupRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("test:c"))

	require.NoError(t, c.Delete(ctx))
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupRedisCacheTest(t)
	ctx := context.Background()
	mr.Close()

	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Error(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Ping(ctx))
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), Config{RedisURL: "not-a-url://"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), Config{RedisURL: "redis://" + addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestNewRedisCacheFromClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "")
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "plain", []byte("x"), 0))
	assert.True(t, mr.Exists("plain"))
}
