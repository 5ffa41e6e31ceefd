package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestLimiterEnforcesBudget(t *testing.T) {
	_, rdb := testRedis(t)
	l := New(rdb, "test", 3, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d should be admitted", i+1)
	}
	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "hit over budget should be rejected")
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	_, rdb := testRedis(t)
	l := New(rdb, "test", 1, 10*time.Second)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "a second key must have its own budget")

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLimiterWindowExpiry(t *testing.T) {
	mr, rdb := testRedis(t)
	l := New(rdb, "test", 1, 5*time.Second)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(6 * time.Second)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "budget must reset after the window expires")
}

func TestLimiterFailsOpen(t *testing.T) {
	mr, rdb := testRedis(t)
	l := New(rdb, "test", 1, 5*time.Second)
	mr.Close()

	ok, err := l.Allow(context.Background(), "user-1")
	assert.Error(t, err)
	assert.True(t, ok, "a limiter-store outage must not reject requests")
}

func TestGlobalThrottleSharedAcrossCallers(t *testing.T) {
	_, rdb := testRedis(t)
	g := NewGlobal(rdb)
	ctx := context.Background()

	// The counter is shared: 100 admissions total, regardless of caller.
	for i := 0; i < 100; i++ {
		ok, err := g.Allow(ctx)
		require.NoError(t, err)
		require.True(t, ok, "admission %d", i+1)
	}
	ok, err := g.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGlobalThrottleWindowReset(t *testing.T) {
	mr, rdb := testRedis(t)
	g := NewGlobal(rdb)
	ctx := context.Background()

	for i := 0; i < 101; i++ {
		g.Allow(ctx)
	}
	ok, err := g.Allow(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(61 * time.Second)

	ok, err = g.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewSetBudgets(t *testing.T) {
	_, rdb := testRedis(t)
	s := NewSet(rdb)
	ctx := context.Background()

	// image-post admits one upload per window.
	ok, err := s.ImagePost.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ImagePost.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// proxy-slow admits five.
	for i := 0; i < 5; i++ {
		ok, err := s.ProxySlow.Allow(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err = s.ProxySlow.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "template-put", s.TemplatePut.Prefix())
	assert.Equal(t, "image-post-daily", s.ImagePostDaily.Prefix())
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/template", nil)
	r.RemoteAddr = "203.0.113.7:51234"

	assert.Equal(t, "user-1", ClientKey(r, "user-1"))
	assert.Equal(t, "203.0.113.7", ClientKey(r, ""))

	r.Header.Set("X-Forwarded-For", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientKey(r, ""))
	assert.Equal(t, "user-1", ClientKey(r, "user-1"), "identity wins over the forwarded header")
}
