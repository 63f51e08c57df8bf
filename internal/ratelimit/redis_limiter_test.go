package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/storefront-account/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 4-i, result.Remaining)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed)
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)

	clk := &clock{now: time.Now()}
	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = clk.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	blocked, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)
	assert.Equal(t, time.Second, blocked.RetryAfter(clk.now))

	clk.now = clk.now.Add(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(testLogger())
	limiter.now = clk.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "ip", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "ip", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, time.Minute, result.RetryAfter(clk.now))

	clk.now = clk.now.Add(2 * time.Minute)
	assert.Equal(t, 1, limiter.Cleanup(time.Minute))

	result, err = limiter.Check(ctx, "ip", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func TestAdaptiveLimiter_FallsBackWithHalfLimit(t *testing.T) {
	limiter := NewAdaptiveLimiter(failingLimiter{}, NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "ip", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "ip", 4, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCleaner_RemovesExpiredKeys(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	start := time.Now()
	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = func() time.Time { return start }
	_, err := limiter.Check(ctx, "stale", 5, time.Minute)
	require.NoError(t, err)

	cleaner := NewCleaner(client, testLogger(), time.Minute, time.Minute)
	cleaner.now = func() time.Time { return start.Add(30 * time.Second) }
	assert.Zero(t, cleaner.Cleanup(ctx))

	cleaner.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Equal(t, 1, cleaner.Cleanup(ctx))

	exists, err := client.Exists(ctx, keyPrefix+"stale").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRules(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Whitelist: []string{"10.0.0.1", "::1"},
		Global:    config.RateLimitRule{Limit: 100, Window: time.Minute},
		Submit:    config.RateLimitRule{Limit: 5, Window: 10 * time.Minute},
	})

	assert.True(t, rules.IsWhitelisted("10.0.0.1"))
	assert.True(t, rules.IsWhitelisted("0:0:0:0:0:0:0:1"))
	assert.False(t, rules.IsWhitelisted("10.0.0.2"))
	assert.False(t, rules.IsWhitelisted("garbage"))

	limit, window, ok := rules.Rule(ScopeSubmit)
	assert.True(t, ok)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10*time.Minute, window)

	_, _, ok = rules.Rule(ScopeEdit)
	assert.False(t, ok)

	assert.Equal(t, 10*time.Minute, rules.MaxWindow())
}
