// Package web serves the account widget over HTTP.
package web

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"

	"github.com/Proton-105/storefront-account/internal/account"
	"github.com/Proton-105/storefront-account/internal/web/view"
)

// HeaderTriggerAfterSettle asks htmx to fire a client event once the swap settles.
const HeaderTriggerAfterSettle = "HX-Trigger-After-Settle"

// Handler exposes the widget operations as htmx endpoints.
type Handler struct {
	machine *account.Machine
	opts    view.Options
	log     *slog.Logger
}

func NewHandler(machine *account.Machine, opts view.Options, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		machine: machine,
		opts:    opts,
		log:     log,
	}
}

// Index creates a widget for the visitor and renders the hosting page.
func (h *Handler) Index(c echo.Context) error {
	w, err := h.machine.Create(c.Request().Context(), CustomerEmail(c) != "")
	if err != nil {
		return err
	}

	return render(c, http.StatusOK, view.Page(w, h.opts))
}

// Show re-renders the widget. While a signup is pending this is the polling endpoint.
func (h *Handler) Show(c echo.Context) error {
	w, effect, err := h.machine.Refresh(c.Request().Context(), c.Param("id"))
	return h.respond(c, w, effect, err)
}

func (h *Handler) Toggle(c echo.Context) error {
	w, effect, err := h.machine.Toggle(c.Request().Context(), c.Param("id"))
	return h.respond(c, w, effect, err)
}

func (h *Handler) ChangeView(c echo.Context) error {
	to, err := account.ParseView(c.Param("view"))
	if err != nil {
		return err
	}

	w, effect, err := h.machine.ChangeView(c.Request().Context(), c.Param("id"), to)
	return h.respond(c, w, effect, err)
}

// Edit applies one field edit. A form without a value field is a no-op.
func (h *Handler) Edit(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed form")
	}

	var value *string
	if values, ok := params["value"]; ok && len(values) > 0 {
		value = &values[0]
	}

	w, err := h.machine.ApplyEdit(c.Request().Context(), c.Param("id"), params.Get("id"), value)
	return h.respond(c, w, account.Effect{}, err)
}

// Step moves the wizard; the direction is "next" or "prev".
func (h *Handler) Step(c echo.Context) error {
	var direction int
	switch c.Param("direction") {
	case "next":
		direction = 1
	case "prev":
		direction = -1
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown step direction")
	}

	w, effect, err := h.machine.Advance(c.Request().Context(), c.Param("id"), direction)
	return h.respond(c, w, effect, err)
}

func (h *Handler) Submit(c echo.Context) error {
	w, effect, err := h.machine.Submit(c.Request().Context(), c.Param("id"))
	return h.respond(c, w, effect, err)
}

func (h *Handler) Retry(c echo.Context) error {
	w, effect, err := h.machine.Retry(c.Request().Context(), c.Param("id"))
	return h.respond(c, w, effect, err)
}

func (h *Handler) Logout(c echo.Context) error {
	w, effect, err := h.machine.Logout(c.Request().Context(), c.Param("id"))
	return h.respond(c, w, effect, err)
}

// respond applies the session side effects and renders the widget. Rejected
// operations render the unchanged widget with 409.
func (h *Handler) respond(c echo.Context, w account.Widget, effect account.Effect, err error) error {
	if err != nil {
		if isStateError(err) && w.ID != "" {
			return render(c, http.StatusConflict, view.Widget(w, h.opts))
		}
		return err
	}

	if effect.LoggedIn {
		if err := SaveCustomer(c, w.Draft.Get(account.FieldEmail)); err != nil {
			h.log.Error("failed to save session", slog.String("widget_id", w.ID), slog.Any("error", err))
		}
	}
	if effect.LoggedOut {
		if err := ClearCustomer(c); err != nil {
			h.log.Error("failed to clear session", slog.String("widget_id", w.ID), slog.Any("error", err))
		}
	}

	opts := h.opts
	if effect.RestoreFocus {
		opts.RestoreFocus = true
		c.Response().Header().Set(HeaderTriggerAfterSettle, view.FocusEvent)
	}

	return render(c, http.StatusOK, view.Widget(w, opts))
}

func render(c echo.Context, status int, node g.Node) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return node.Render(c.Response())
}
