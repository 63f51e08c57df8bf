package view

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Proton-105/storefront-account/internal/account"
)

const htmxSrc = "https://unpkg.com/htmx.org@2.0.4"

// htmxConfig lets rejected operations (409) swap in the re-rendered widget.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"409","swap":true},{"code":"[23]..","swap":true},{"code":"[45]..","swap":false,"error":true}]}`

const focusScript = `document.body.addEventListener("` + FocusEvent + `", function () {
  var toggle = document.getElementById("` + ToggleID + `");
  if (toggle) { toggle.focus(); }
});`

// Page renders a full document hosting one widget.
func Page(w account.Widget, opts Options) g.Node {
	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.Meta(h.Name("htmx-config"), h.Content(htmxConfig)),
				h.TitleEl(g.Text("My Account")),
				h.Script(h.Src(htmxSrc), h.Defer()),
			),
			h.Body(
				Widget(w, opts),
				h.Script(g.Raw(focusScript)),
			),
		),
	)
}
