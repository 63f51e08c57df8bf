package web

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName     = "account-session"
	sessionEmailKey = "email"
	sessionMaxAge   = 7 * 24 * 60 * 60
)

// NewSessionStore returns the signed cookie store that remembers the logged-in customer.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// CustomerEmail returns the email stored in the session, or "" for guests.
func CustomerEmail(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	email, _ := sess.Values[sessionEmailKey].(string)
	return email
}

// SaveCustomer remembers email as the logged-in customer.
func SaveCustomer(c echo.Context, email string) error {
	sess, err := customerSession(c)
	if err != nil {
		return err
	}
	sess.Values[sessionEmailKey] = email
	return sess.Save(c.Request(), c.Response())
}

// ClearCustomer expires the session cookie.
func ClearCustomer(c echo.Context) error {
	sess, err := customerSession(c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionEmailKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// customerSession tolerates cookies that no longer decode; the store hands back a fresh session for them.
func customerSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return nil, err
	}
	return sess, nil
}
