package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/ratelimit"
)

// HeaderRateLimitRemaining reports the requests left in the current window.
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

// RateLimit enforces the rule of scope per client IP. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, scope ratelimit.Scope, log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil || rules == nil {
			return next
		}

		return func(c echo.Context) error {
			limit, window, ok := rules.Rule(scope)
			if !ok {
				return next(c)
			}

			clientIP := c.RealIP()
			if rules.IsWhitelisted(clientIP) {
				return next(c)
			}

			ctx := c.Request().Context()
			key := fmt.Sprintf("%s:%s", scope, clientIP)
			result, err := limiter.Check(ctx, key, limit, window)
			if err != nil {
				log.WarnContext(ctx, "rate limiter error", slog.String("scope", string(scope)), slog.Any("error", err))
				return next(c)
			}

			c.Response().Header().Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
			if !result.Allowed {
				log.WarnContext(ctx, "rate limit exceeded", slog.String("scope", string(scope)), slog.String("client_ip", clientIP))
				return apperrors.NewRateLimitError(result.RetryAfter(time.Now()))
			}

			return next(c)
		}
	}
}
