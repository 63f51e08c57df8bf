package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rateLimitChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Total number of rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitBackendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_backend_errors_total",
		Help: "Total number of primary backend errors encountered by the limiter.",
	})
)

func init() {
	prometheus.MustRegister(rateLimitChecksTotal, rateLimitBackendErrorsTotal)
}

// AdaptiveLimiter delegates to a primary (Redis) limiter and falls back to
// a stricter in-memory limiter when the primary fails.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter creates a limiter that adapts between Redis and in-memory backends.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check evaluates the limit using the primary backend. On backend errors the
// fallback enforces half the limit per instance.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		rateLimitChecksTotal.WithLabelValues("primary", resultLabel(result.Allowed)).Inc()
		return result, nil
	}

	rateLimitBackendErrorsTotal.Inc()
	a.log.Warn("primary limiter failed, falling back to in-memory", slog.String("key", key), slog.Any("error", err))

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	fallbackResult, fallbackErr := a.fallback.Check(ctx, key, fallbackLimit, window)
	if fallbackErr != nil {
		return fallbackResult, fallbackErr
	}

	rateLimitChecksTotal.WithLabelValues("fallback", resultLabel(fallbackResult.Allowed)).Inc()
	return fallbackResult, nil
}

func resultLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "rejected"
}
