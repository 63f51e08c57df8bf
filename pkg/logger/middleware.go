package logger

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderCorrelationID carries the correlation identifier in requests and responses.
const HeaderCorrelationID = echo.HeaderXRequestID

// correlationIDKey marks the context storage slot for the correlation identifier.
type correlationIDKey struct{}

// CorrelationIDFromContext returns the correlation identifier stored in ctx, or an empty string when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}

// WithCorrelationID stores id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// Middleware injects a correlation identifier into the request context before
// delegating. An incoming X-Request-ID is reused, otherwise a new one is generated.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			correlationID := req.Header.Get(HeaderCorrelationID)
			if correlationID == "" || len(correlationID) > 64 {
				correlationID = uuid.NewString()
			}

			c.SetRequest(req.WithContext(WithCorrelationID(req.Context(), correlationID)))
			c.Response().Header().Set(HeaderCorrelationID, correlationID)

			return next(c)
		}
	}
}
