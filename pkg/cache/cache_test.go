package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	rc, err := NewRedisCache(context.Background(), WithRedisAddr(s.Addr()), WithRedisPrefix("test"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rc.Close()
		s.Close()
	})
	return s, rc
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := []point{{Date: "2024-01-02", Close: 100}, {Date: "2024-01-03", Close: 101.5}}
	require.NoError(t, mc.Set(ctx, "timeline", in, time.Minute))

	var out []point
	require.NoError(t, mc.Get(ctx, "timeline", &out))
	assert.Equal(t, in, out)

	out[0].Close = -1
	var again []point
	require.NoError(t, mc.Get(ctx, "timeline", &again))
	assert.Equal(t, 100.0, again[0].Close)
}

func TestMemoryCache_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "nope", &s), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &s), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)

	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	assert.NoError(t, mc.Get(ctx, "a", &s))
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &s))
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, rc := setupTestRedis(t)

	in := []point{{Date: "2024-01-02", Close: 42}}
	require.NoError(t, rc.Set(ctx, "timeline", in, time.Hour))
	assert.True(t, s.Exists("test:timeline"))

	var out []point
	require.NoError(t, rc.Get(ctx, "timeline", &out))
	assert.Equal(t, in, out)

	require.NoError(t, rc.Delete(ctx, "timeline"))
	assert.ErrorIs(t, rc.Get(ctx, "timeline", &out), ErrCacheMiss)
}

func TestLayeredCache_FallsBackToRedis(t *testing.T) {
	ctx := context.Background()
	s, rc := setupTestRedis(t)

	lc := NewLayeredCache(rc, WithLayeredMemoryTTL(time.Minute))
	defer lc.memCache.Close()

	require.NoError(t, s.Set("test:quote", `{"date":"2024-05-01","close":7}`))

	var out point
	require.NoError(t, lc.Get(ctx, "quote", &out))
	assert.Equal(t, point{Date: "2024-05-01", Close: 7}, out)

	s.FlushAll()
	var cached point
	require.NoError(t, lc.Get(ctx, "quote", &cached))
	assert.Equal(t, out, cached)

	require.NoError(t, lc.Delete(ctx, "quote"))
	assert.ErrorIs(t, lc.Get(ctx, "quote", &cached), ErrCacheMiss)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "timeline:v1:252", GenerateKeyWithParams("timeline", "v1", 252))
}
