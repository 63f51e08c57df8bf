package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter implements Limiter using Redis sorted sets scored in milliseconds.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter implementation.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Check evaluates the rate limit for a given key using a sliding window.
// Rejected requests are not recorded, so a blocked caller regains access
// as soon as its oldest accepted request leaves the window.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{Allowed: false, ResetAt: now.Add(window)}, nil
	}

	redisKey := keyPrefix + key
	cutoff := toMillis(now.Add(-window))

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%d", cutoff))
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("rate limiter pipeline failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.UnixMilli(int64(oldest[0].Score)).Add(window)
	}

	if count >= limit {
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(toMillis(now)), Member: uuid.NewString()})
	pipe.PExpire(ctx, redisKey, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("rate limiter failed to record request", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	if count == 0 {
		resetAt = now.Add(window)
	}

	return &Result{
		Allowed:   true,
		Remaining: limit - count - 1,
		ResetAt:   resetAt,
	}, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}
