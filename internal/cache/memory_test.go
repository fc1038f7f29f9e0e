package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryCache() (*MemoryCache, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCacheValues(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemoryCache()

	_, err := c.GetValue(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetValue(ctx, "k", []byte("v"), time.Minute))
	got, err := c.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	*now = now.Add(time.Minute)
	_, err = c.GetValue(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss, "entries expire with their ttl")

	require.NoError(t, c.SetValue(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.DeleteValue(ctx, "k"))
	_, err = c.GetValue(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheCooldown(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemoryCache()

	remaining, err := c.StartCooldown(ctx, "cooldown", 60*time.Second)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	*now = now.Add(20 * time.Second)
	remaining, err = c.StartCooldown(ctx, "cooldown", 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, remaining, "an open window is not extended")

	*now = now.Add(40 * time.Second)
	remaining, err = c.StartCooldown(ctx, "cooldown", 60*time.Second)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestMemoryCacheLocks(t *testing.T) {
	c, now := newTestMemoryCache()

	acquired, err := c.TryAcquireLock("lock", "a", 60)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = c.TryAcquireLock("lock", "b", 60)
	require.NoError(t, err)
	assert.False(t, acquired)

	refreshed, err := c.RefreshLock("lock", "b", 60)
	require.NoError(t, err)
	assert.False(t, refreshed)

	refreshed, err = c.RefreshLock("lock", "a", 60)
	require.NoError(t, err)
	assert.True(t, refreshed)

	*now = now.Add(61 * time.Second)
	acquired, err = c.TryAcquireLock("lock", "b", 60)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryCacheRateLimit(t *testing.T) {
	c, now := newTestMemoryCache()

	for i := 0; i < 3; i++ {
		retryAfter, err := c.GetRateLimit("1.2.3.4", 3)
		require.NoError(t, err)
		assert.Zero(t, retryAfter)
	}

	retryAfter, err := c.GetRateLimit("1.2.3.4", 3)
	require.NoError(t, err)
	assert.Positive(t, retryAfter)

	*now = now.Add(time.Minute)
	retryAfter, err = c.GetRateLimit("1.2.3.4", 3)
	require.NoError(t, err)
	assert.Zero(t, retryAfter)
}
