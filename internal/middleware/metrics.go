package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Proton-105/storefront-account/pkg/metrics"
)

// Metrics measures execution time and status per route, reporting them to Prometheus.
// It must run inside Logging so errors are already rendered.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = 500
				}
			}

			metrics.RecordHTTPRequest(c.Path(), c.Request().Method, status, time.Since(start))
			return err
		}
	}
}
