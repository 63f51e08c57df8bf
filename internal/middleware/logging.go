// Package middleware holds the echo middleware shared by the HTTP routes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Proton-105/storefront-account/pkg/logger"
)

// Logging creates an HTTP middleware that logs request and response details.
func Logging(log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let echo render the error so the logged status is final
				c.Error(err)
			}

			req := c.Request()
			level := slog.LevelInfo
			status := c.Response().Status
			if status >= 500 {
				level = slog.LevelError
			}

			log.Log(req.Context(), level,
				"handled http request",
				slog.String("method", req.Method),
				slog.String("route", c.Path()),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("correlation_id", logger.CorrelationIDFromContext(req.Context())),
			)

			return nil
		}
	}
}
