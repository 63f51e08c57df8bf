package account

import (
	"errors"
	"fmt"
)

// View selects which top-level screen of the widget is shown.
type View int

const (
	// ViewSignIn shows the sign-in form. It is the default view.
	ViewSignIn View = iota
	// ViewForgotPassword shows the reset-link form.
	ViewForgotPassword
	// ViewCreateAccount shows the signup wizard.
	ViewCreateAccount
	// ViewValidateSignUp is shown while the signup result is pending or failed.
	ViewValidateSignUp
	// ViewLoggedIn shows the customer menu.
	ViewLoggedIn
)

// ErrUnknownView is returned when a view name cannot be parsed.
var ErrUnknownView = errors.New("unknown view")

var viewNames = [...]string{
	ViewSignIn:         "signIn",
	ViewForgotPassword: "forgotPassword",
	ViewCreateAccount:  "createAccount",
	ViewValidateSignUp: "validateSignUp",
	ViewLoggedIn:       "loggedIn",
}

// Views lists every view in declaration order.
func Views() []View {
	return []View{ViewSignIn, ViewForgotPassword, ViewCreateAccount, ViewValidateSignUp, ViewLoggedIn}
}

func (v View) String() string {
	if !v.Valid() {
		return fmt.Sprintf("View(%d)", int(v))
	}
	return viewNames[v]
}

// Valid reports whether v is one of the declared views.
func (v View) Valid() bool {
	return v >= ViewSignIn && v <= ViewLoggedIn
}

// ParseView maps a wire name such as "createAccount" to its View.
func ParseView(name string) (View, error) {
	for i, n := range viewNames {
		if n == name {
			return View(i), nil
		}
	}
	return ViewSignIn, fmt.Errorf("%w: %q", ErrUnknownView, name)
}

func (v View) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownView, int(v))
	}
	return []byte(viewNames[v]), nil
}

func (v *View) UnmarshalText(text []byte) error {
	parsed, err := ParseView(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
