package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache_SetGetDelete(t *testing.T) {
	c := NewLocalCache(32, time.Minute)
	ctx := context.Background()

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k", "other"))
	v, _ = c.Get(ctx, "k")
	assert.Nil(t, v)
}

func TestLocalCache_CopiesValue(t *testing.T) {
	c := NewLocalCache(32, time.Minute)
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'z'

	v, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), v)
}

func TestLocalCache_PerEntryTTL(t *testing.T) {
	c := NewLocalCache(32, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), 10*time.Minute))

	now = now.Add(2 * time.Second)

	v, _ := c.Get(ctx, "short")
	assert.Nil(t, v)
	v, _ = c.Get(ctx, "long")
	assert.Equal(t, []byte("2"), v)
}

func TestLocalCache_MaxTTLCapsEntry(t *testing.T) {
	c := NewLocalCache(32, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	now = now.Add(2 * time.Minute)

	v, _ := c.Get(ctx, "k")
	assert.Nil(t, v)
}

func TestLocalCache_Eviction(t *testing.T) {
	c := NewLocalCache(16, time.Minute)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		require.NoError(t, c.Set(ctx, string(rune('a'+i)), []byte{byte(i)}, time.Minute))
	}
	assert.Equal(t, 16, c.Len())
}

func TestLocalCache_Close(t *testing.T) {
	c := NewLocalCache(16, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}
