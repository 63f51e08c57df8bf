package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Proton-105/storefront-account/internal/account"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
)

// isStateError reports whether err rejects an operation the widget cannot
// perform right now. Such requests re-render the unchanged widget.
func isStateError(err error) bool {
	return errors.Is(err, account.ErrInvalidTransition) ||
		errors.Is(err, account.ErrStepIncomplete)
}

// classify maps err to an application error and the HTTP status it is answered with.
// Unrecognised errors yield a nil application error and status 500.
func classify(err error) (*apperrors.AppError, int) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeValidation:
			return appErr, http.StatusBadRequest
		case apperrors.CodeNotFound:
			return appErr, http.StatusNotFound
		case apperrors.CodeState:
			return appErr, http.StatusConflict
		case apperrors.CodeRateLimit:
			return appErr, http.StatusTooManyRequests
		}
		return appErr, http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, account.ErrWidgetNotFound):
		return apperrors.NewNotFoundError("widget", err), http.StatusNotFound
	case isStateError(err), errors.Is(err, account.ErrWidgetLocked):
		return apperrors.NewStateError(err), http.StatusConflict
	case errors.Is(err, account.ErrUnknownField), errors.Is(err, account.ErrUnknownView):
		return apperrors.NewValidationError(err.Error()), http.StatusBadRequest
	}

	return nil, http.StatusInternalServerError
}

// ErrorHandler answers failed requests with a short customer-facing message.
// Server errors go through the application error handler; the rest are logged at warn.
func ErrorHandler(handler *apperrors.Handler, log *slog.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			message = http.StatusText(status)
			if text, ok := httpErr.Message.(string); ok && text != "" {
				message = text
			}
		} else {
			appErr, code := classify(err)
			status = code
			if appErr != nil {
				message = appErr.UserMessage
			}

			ctx := c.Request().Context()
			if status >= http.StatusInternalServerError && handler != nil {
				message, _ = handler.Handle(ctx, err)
			} else if status < http.StatusInternalServerError {
				log.WarnContext(ctx, "request rejected",
					slog.Int("status", status),
					slog.String("path", c.Request().URL.Path),
					slog.Any("error", err),
				)
			}

			if appErr != nil && appErr.RetryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.String(status, message)
		}
		if err != nil {
			log.Error("failed to write error response", slog.Any("error", err))
		}
	}
}
