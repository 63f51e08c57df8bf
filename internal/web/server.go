package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/storefront-account/internal/account"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/health"
	"github.com/Proton-105/storefront-account/internal/lifecycle"
	"github.com/Proton-105/storefront-account/internal/middleware"
	"github.com/Proton-105/storefront-account/internal/ratelimit"
	"github.com/Proton-105/storefront-account/internal/web/view"
	"github.com/Proton-105/storefront-account/pkg/logger"
)

// Deps are the collaborators of the HTTP server. Limiter, Rules, Checker and
// Probes are optional.
type Deps struct {
	Machine  *account.Machine
	Sessions sessions.Store
	Options  view.Options
	Limiter  ratelimit.Limiter
	Rules    *ratelimit.Rules
	Checker  *health.Checker
	Probes   lifecycle.HealthChecker
	Errors   *apperrors.Handler
	Log      *slog.Logger
}

// NewServer builds the echo instance serving the widget, health and metrics endpoints.
func NewServer(d Deps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(d.Errors, log)

	e.Use(echomw.Recover())
	e.Use(logger.Middleware())
	// Logging renders handler errors, so Metrics outside it sees the final status.
	e.Use(middleware.Metrics())
	e.Use(middleware.Logging(log))

	e.GET("/healthz", healthz(d.Checker))
	e.GET("/livez", probe(d.Probes, false))
	e.GET("/readyz", probe(d.Probes, true))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := NewHandler(d.Machine, d.Options, log)
	rate := func(scope ratelimit.Scope) echo.MiddlewareFunc {
		return middleware.RateLimit(d.Limiter, d.Rules, scope, log)
	}

	app := e.Group("", session.Middleware(d.Sessions), rate(ratelimit.ScopeGlobal))
	app.GET("/", h.Index)

	widgets := app.Group("/widgets/:id")
	widgets.GET("", h.Show)
	widgets.POST("/toggle", h.Toggle)
	widgets.POST("/views/:view", h.ChangeView)
	widgets.POST("/fields", h.Edit, rate(ratelimit.ScopeEdit))
	widgets.POST("/steps/:direction", h.Step)
	widgets.POST("/submit", h.Submit, rate(ratelimit.ScopeSubmit))
	widgets.POST("/retry", h.Retry)
	widgets.POST("/logout", h.Logout)

	return e
}

func healthz(checker *health.Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		if checker == nil {
			return c.JSON(http.StatusOK, map[string]string{})
		}

		results := checker.Check(c.Request().Context())
		status := http.StatusOK
		if !health.Healthy(results) {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, results)
	}
}

func probe(probes lifecycle.HealthChecker, readiness bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if probes == nil {
			return c.String(http.StatusOK, health.StatusOK)
		}

		check := probes.Liveness
		if readiness {
			check = probes.Readiness
		}
		if err := check(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.String(http.StatusOK, health.StatusOK)
	}
}
