package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	MaxRetries        = 3
	InitialBackoff    = 100 * time.Millisecond
	MaxBackoff        = 5 * time.Second
	BackoffMultiplier = 2.0
)

// RetryPolicy controls WithRetryPolicy. Zero fields fall back to the package defaults.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the policy used by WithRetry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     MaxRetries,
		InitialBackoff: InitialBackoff,
		MaxBackoff:     MaxBackoff,
	}
}

func WithRetry(ctx context.Context, fn func() error) error {
	return WithRetryPolicy(ctx, DefaultRetryPolicy(), fn)
}

// WithRetryPolicy calls fn until it succeeds, returns a non-retryable error or
// the policy is exhausted. Backoff waits are interrupted by ctx.
func WithRetryPolicy(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	policy = policy.withDefaults()

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt == policy.MaxRetries {
			return err
		}

		timer := time.NewTimer(policy.backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = MaxBackoff
	}
	return p
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(BackoffMultiplier, float64(attempt-1))
	backoff := time.Duration(delay)
	if backoff > p.MaxBackoff {
		return p.MaxBackoff
	}

	return backoff
}
