// Package ratelimit implements sliding-window request limits backed by
// process memory or Redis.
package ratelimit

import (
	"context"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a rejected caller should wait, at least one second.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r == nil || !r.ResetAt.After(now) {
		return time.Second
	}
	wait := r.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Limiter describes a rate-limiting strategy. A rejected request is reported
// through Result.Allowed; the error is reserved for backend failures.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
