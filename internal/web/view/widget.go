// Package view renders the account widget as HTML with htmx attributes.
package view

import (
	"fmt"
	"time"

	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"

	"github.com/Proton-105/storefront-account/internal/account"
)

// ToggleID is the id of the open/close button that receives focus after view changes.
const ToggleID = "account-toggle"

// FocusEvent is triggered on the client to move focus back to the toggle.
const FocusEvent = "account:focus"

const (
	notePersonName = "Must be at least two characters long."
	notePassword   = "Min. eight characters, at least one uppercase letter, one lowercase letter and one number."
	noteTelephone  = "Number must contain country code e.g. +371"
)

// Options carries the links and timings the widget renders.
type Options struct {
	SignInURL        string
	ResetPasswordURL string
	AccountURL       string
	OrdersURL        string
	PollInterval     time.Duration
	// RestoreFocus marks the toggle button autofocus.
	RestoreFocus bool
}

// ElementID is the DOM id of a rendered widget.
func ElementID(w account.Widget) string {
	return "account-widget-" + w.ID
}

// Widget renders the whole widget: the toggle and the dropdown for the current view.
func Widget(w account.Widget, opts Options) g.Node {
	root := []g.Node{
		h.ID(ElementID(w)),
		c.Classes{"MyAccount": true, "MyAccount_isOpen": w.IsOpen},
		h.Data("view", w.View.String()),
		hx.Target("this"),
		hx.Swap("outerHTML"),
	}

	if w.Pending() {
		root = append(root,
			hx.Get(widgetURL(w, "")),
			hx.Trigger(fmt.Sprintf("every %s", pollEvery(opts.PollInterval))),
		)
	}

	return h.Div(
		g.Group(root),
		toggle(w, opts),
		dropdown(w, opts),
	)
}

func toggle(w account.Widget, opts Options) g.Node {
	label := "My Account"
	if w.View == account.ViewLoggedIn {
		label = "Hello, User"
	}

	return h.Button(
		h.Type("button"),
		h.ID(ToggleID),
		c.Classes{"MyAccount-Button": true, "MyAccount-Button_isOpen": w.IsOpen},
		h.Aria("expanded", fmt.Sprintf("%t", w.IsOpen)),
		g.If(opts.RestoreFocus, h.AutoFocus()),
		hx.Post(widgetURL(w, "/toggle")),
		h.I(h.Class("MyAccount-Icon")),
		h.Span(g.Text(label)),
	)
}

func dropdown(w account.Widget, opts Options) g.Node {
	state := w.View.String()

	return h.Div(
		c.Classes{"MyAccount-Dropdown": true, "MyAccount-Dropdown_state_" + state: true},
		h.Div(
			c.Classes{"MyAccount-Action": true, "MyAccount-Action_state_" + state: true},
			content(w, opts),
		),
	)
}

// content is the render dispatch over every view.
func content(w account.Widget, opts Options) g.Node {
	switch w.View {
	case account.ViewSignIn:
		return signIn(w, opts)
	case account.ViewForgotPassword:
		return forgotPassword(w, opts)
	case account.ViewCreateAccount:
		return createAccount(w)
	case account.ViewValidateSignUp:
		return validateSignUp(w)
	case account.ViewLoggedIn:
		return accountActions(w, opts)
	default:
		panic(fmt.Sprintf("view: unhandled widget view %s", w.View))
	}
}

func signIn(w account.Widget, opts Options) g.Node {
	return g.Group{
		h.Form(
			h.Method("post"),
			h.Action(opts.SignInURL),
			h.H3(g.Text("Sign in to your account")),
			Field{Type: "text", Label: "Login or Email", ID: "email", Value: w.Draft.Get(account.FieldEmail)}.Render(),
			Field{Type: "password", Label: "Password", ID: "password"}.Render(),
			h.Div(h.Class("MyAccount-Buttons"), h.Button(h.Type("submit"), g.Text("Sign in"))),
		),
		h.Div(
			h.Class("MyAccount-Additional"),
			linkSection(w, "forgot-password-label", "Forgot password?", account.ViewForgotPassword, "#password-reset", "Get a password reset link"),
			linkSection(w, "create-account-label", "Don`t have an account?", account.ViewCreateAccount, "#create-account", "Create an account"),
		),
	}
}

func forgotPassword(w account.Widget, opts Options) g.Node {
	return g.Group{
		h.Form(
			h.Method("post"),
			h.Action(opts.ResetPasswordURL),
			h.H3(g.Text("Get password reset link")),
			Field{Type: "text", Label: "Email", ID: "email", Value: w.Draft.Get(account.FieldEmail)}.Render(),
			h.Div(h.Class("MyAccount-Buttons"), h.Button(h.Type("submit"), g.Text("Send reset link"))),
		),
		h.Div(
			h.Class("MyAccount-Additional"),
			linkSection(w, "sign-in-label", "Already have an account?", account.ViewSignIn, "#sign-in", "Sign in here"),
			linkSection(w, "create-account-label", "Don`t have an account?", account.ViewCreateAccount, "#create-account", "Create an account"),
		),
	}
}

func createAccount(w account.Widget) g.Node {
	return g.Group{
		h.Form(
			g.Attr("onsubmit", "return false"),
			h.H3(g.Text("Create your account")),
			createStep(w),
			stepActions(w),
		),
		h.Div(
			h.Class("MyAccount-Additional"),
			linkSection(w, "sign-in-label", "Already have an account?", account.ViewSignIn, "#sign-in", "Sign in here"),
		),
	}
}

func createStep(w account.Widget) g.Node {
	field := func(f account.Field, typ, label, id, note, placeholder string) g.Node {
		return Field{
			Type:        typ,
			Label:       label,
			ID:          id,
			Value:       w.Draft.Get(f),
			Note:        note,
			Placeholder: placeholder,
			Edited:      w.Validity.Has(f),
			Valid:       w.Validity.Valid(f),
			PostURL:     widgetURL(w, "/fields"),
		}.Render()
	}

	switch w.Step {
	case account.StepPersonalDetails:
		return g.Group{
			h.H4(g.Text("Specify customer details")),
			field(account.FieldEmail, "text", "Email", "email", "", "JohnTitor@scandiweb.com"),
			field(account.FieldFirstName, "text", "First name", "first-name", notePersonName, ""),
			field(account.FieldLastName, "text", "Last name", "last-name", notePersonName, ""),
			field(account.FieldPassword, "password", "Password", "password", notePassword, ""),
			field(account.FieldConfirmPassword, "password", "Confirm password", "confirm-password", "", ""),
		}
	case account.StepShippingAddress:
		return g.Group{
			h.H4(g.Text("Specify shipping address")),
			field(account.FieldAddressFirstName, "text", "First name", "address-first-name", notePersonName, ""),
			field(account.FieldAddressLastName, "text", "Last name", "address-last-name", notePersonName, ""),
			field(account.FieldAddressTelephone, "text", "Telephone", "address-telephone", noteTelephone, ""),
			field(account.FieldAddressCountry, "text", "Country", "address-country", "", ""),
			field(account.FieldAddressCity, "text", "City", "address-city", "", ""),
			field(account.FieldAddressStreet, "text", "Street", "address-street", "", ""),
			field(account.FieldAddressPostcode, "text", "Postal code", "address-postcode", "", ""),
		}
	default:
		panic(fmt.Sprintf("view: unhandled wizard step %s", w.Step))
	}
}

func stepActions(w account.Widget) g.Node {
	return h.Div(
		h.Class("MyAccount-Buttons"),
		g.If(w.CanGoBack(),
			h.Button(h.Type("button"), hx.Post(widgetURL(w, "/steps/prev")), g.Text("Previous step")),
		),
		g.If(w.Step < account.LastStep,
			h.Button(h.Type("button"), g.If(!w.CanAdvance(), h.Disabled()), hx.Post(widgetURL(w, "/steps/next")), g.Text("Next step")),
		),
		g.If(w.Step == account.LastStep,
			h.Button(h.Type("button"), g.If(!w.CanSubmit(), h.Disabled()), hx.Post(widgetURL(w, "/submit")), g.Text("Sign up")),
		),
	)
}

func validateSignUp(w account.Widget) g.Node {
	if w.Failed() {
		return h.Div(
			h.P(g.Text("Something went wrong :(")),
			h.A(h.Href("#create-account"), hx.Post(widgetURL(w, "/retry")), g.Text("Retry here")),
		)
	}

	return h.P(h.Class("MyAccount-Loading"), g.Text("Loading..."))
}

func accountActions(w account.Widget, opts Options) g.Node {
	return h.Nav(
		h.Class("MyAccount-Navigation"),
		h.Ul(
			h.Li(h.A(h.Href(opts.AccountURL), g.Text("My Account"))),
			h.Li(h.A(h.Href(opts.OrdersURL), g.Text("My Orders"))),
			h.Li(h.A(h.Href("#logout"), hx.Post(widgetURL(w, "/logout")), g.Text("Logout"))),
		),
	)
}

func linkSection(w account.Widget, labelID, heading string, to account.View, href, text string) g.Node {
	return h.Section(
		h.Aria("labelledby", labelID),
		h.H4(h.ID(labelID), g.Text(heading)),
		h.A(h.Href(href), hx.Post(widgetURL(w, "/views/"+to.String())), g.Text(text)),
	)
}

func widgetURL(w account.Widget, suffix string) string {
	return "/widgets/" + w.ID + suffix
}

func pollEvery(d time.Duration) string {
	if d <= 0 {
		d = time.Second
	}
	return d.String()
}
