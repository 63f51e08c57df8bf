package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/storefront-account/internal/account"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/health"
	"github.com/Proton-105/storefront-account/internal/lifecycle"
	"github.com/Proton-105/storefront-account/internal/ratelimit"
	"github.com/Proton-105/storefront-account/internal/web/view"
	"github.com/Proton-105/storefront-account/pkg/config"
)

type stubResults struct {
	mu     sync.Mutex
	result *account.SignupResult
}

func (s *stubResults) Result(_ context.Context, _ string) (account.SignupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return account.SignupResult{}, account.ErrResultNotFound
	}
	return *s.result, nil
}

func (s *stubResults) set(result account.SignupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &result
}

type stubSigner struct {
	mu       sync.Mutex
	requests []account.SignupRequest
}

func (s *stubSigner) Dispatch(_ context.Context, _ string, req account.SignupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

type testServer struct {
	echo    *echo.Echo
	storage *account.MemoryStorage
	results *stubResults
	signer  *stubSigner
}

func newTestServer(t *testing.T, rateLimits config.RateLimitConfig) *testServer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage := account.NewMemoryStorage()
	results := &stubResults{}
	signer := &stubSigner{}

	checker := health.NewChecker(log, time.Second)
	checker.AddCheck("storage", health.FuncChecker(func(context.Context) error { return nil }))

	e := NewServer(Deps{
		Machine:  account.NewMachine(storage, account.NewMemoryLocker(), signer, results, log),
		Sessions: NewSessionStore("0123456789abcdef0123456789abcdef", false),
		Options: view.Options{
			SignInURL:        "/customer/account/loginPost",
			ResetPasswordURL: "/customer/account/forgotpasswordpost",
			AccountURL:       "/customer/account",
			OrdersURL:        "/sales/order/history",
			PollInterval:     time.Second,
		},
		Limiter: ratelimit.NewMemoryLimiter(log),
		Rules:   ratelimit.NewRules(rateLimits),
		Checker: checker,
		Probes:  lifecycle.NewProbes(checker, log),
		Errors:  apperrors.NewHandler(log, false),
		Log:     log,
	})

	return &testServer{echo: e, storage: storage, results: results, signer: signer}
}

func (s *testServer) do(t *testing.T, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, w account.Widget) {
	t.Helper()
	require.NoError(t, s.storage.SaveWidget(context.Background(), w))
}

func (s *testServer) widget(t *testing.T, id string) account.Widget {
	t.Helper()
	w, err := s.storage.GetWidget(context.Background(), id)
	require.NoError(t, err)
	return w
}

func edit(id, value string) url.Values {
	return url.Values{"id": {id}, "value": {value}}
}

func TestIndex_RendersGuestWidget(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!doctype html>"))
	assert.Contains(t, rec.Body.String(), `data-view="signIn"`)
	assert.Contains(t, rec.Body.String(), "My Account")
}

func TestToggle_OpensWidgetAndRestoresFocus(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	srv.seed(t, account.NewWidget("w1", false))

	rec := srv.do(t, http.MethodPost, "/widgets/w1/toggle", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, view.FocusEvent, rec.Header().Get(HeaderTriggerAfterSettle))
	assert.Contains(t, rec.Body.String(), "MyAccount_isOpen")
	assert.Contains(t, rec.Body.String(), "autofocus")
	assert.True(t, srv.widget(t, "w1").IsOpen)
}

func TestChangeView(t *testing.T) {
	t.Run("allowed transition", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		srv.seed(t, account.NewWidget("w1", false))

		rec := srv.do(t, http.MethodPost, "/widgets/w1/views/createAccount", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, account.ViewCreateAccount, srv.widget(t, "w1").View)
		assert.Contains(t, rec.Body.String(), `data-view="createAccount"`)
	})

	t.Run("rejected transition re-renders the widget", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		srv.seed(t, account.NewWidget("w1", false))

		rec := srv.do(t, http.MethodPost, "/widgets/w1/views/loggedIn", nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), `id="account-widget-w1"`)
		assert.Contains(t, rec.Body.String(), `data-view="signIn"`)
		assert.Empty(t, rec.Header().Get(HeaderTriggerAfterSettle))
	})

	t.Run("unknown view", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		srv.seed(t, account.NewWidget("w1", false))

		rec := srv.do(t, http.MethodPost, "/widgets/w1/views/basket", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShow_UnknownWidget(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodGet, "/widgets/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "This page has expired, please reload", rec.Body.String())
}

func TestEdit(t *testing.T) {
	t.Run("valid value marks the field", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		w := account.NewWidget("w1", false)
		w.View = account.ViewCreateAccount
		srv.seed(t, w)

		rec := srv.do(t, http.MethodPost, "/widgets/w1/fields", edit("email", "andy@example.com"))

		require.Equal(t, http.StatusOK, rec.Code)
		stored := srv.widget(t, "w1")
		assert.Equal(t, "andy@example.com", stored.Draft.Get(account.FieldEmail))
		assert.True(t, stored.Validity.Valid(account.FieldEmail))
		assert.Empty(t, rec.Header().Get(HeaderTriggerAfterSettle))
	})

	t.Run("missing value is a no-op", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		w := account.NewWidget("w1", false)
		w.View = account.ViewCreateAccount
		srv.seed(t, w)

		rec := srv.do(t, http.MethodPost, "/widgets/w1/fields", url.Values{"id": {"email"}})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, srv.widget(t, "w1").Validity.Has(account.FieldEmail))
	})

	t.Run("unknown field", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		srv.seed(t, account.NewWidget("w1", false))

		rec := srv.do(t, http.MethodPost, "/widgets/w1/fields", edit("nickname", "andy"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStep(t *testing.T) {
	t.Run("incomplete step is rejected", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		w := account.NewWidget("w1", false)
		w.View = account.ViewCreateAccount
		srv.seed(t, w)

		rec := srv.do(t, http.MethodPost, "/widgets/w1/steps/next", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, account.StepPersonalDetails, srv.widget(t, "w1").Step)
	})

	t.Run("unknown direction", func(t *testing.T) {
		srv := newTestServer(t, config.RateLimitConfig{})
		srv.seed(t, account.NewWidget("w1", false))

		rec := srv.do(t, http.MethodPost, "/widgets/w1/steps/sideways", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSignupFlow_LogsCustomerIn(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	srv.seed(t, account.NewWidget("w1", false))

	steps := []struct {
		method string
		target string
		form   url.Values
	}{
		{http.MethodPost, "/widgets/w1/toggle", nil},
		{http.MethodPost, "/widgets/w1/views/createAccount", nil},
		{http.MethodPost, "/widgets/w1/fields", edit("email", "andy@example.com")},
		{http.MethodPost, "/widgets/w1/fields", edit("firstname", "Andy")},
		{http.MethodPost, "/widgets/w1/fields", edit("lastname", "Smith")},
		{http.MethodPost, "/widgets/w1/fields", edit("password", "Secret123")},
		{http.MethodPost, "/widgets/w1/fields", edit("confirmpassword", "Secret123")},
		{http.MethodPost, "/widgets/w1/steps/next", nil},
		{http.MethodPost, "/widgets/w1/fields", edit("addresstelephone", "+37120000000")},
		{http.MethodPost, "/widgets/w1/fields", edit("addresscountry", "Latvia")},
		{http.MethodPost, "/widgets/w1/fields", edit("addresscity", "Riga")},
		{http.MethodPost, "/widgets/w1/fields", edit("addresspostcode", "LV-1010")},
		{http.MethodPost, "/widgets/w1/fields", edit("addressstreet", "Brivibas 1")},
		{http.MethodPost, "/widgets/w1/submit", nil},
	}
	for _, step := range steps {
		rec := srv.do(t, step.method, step.target, step.form)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s", step.method, step.target)
	}

	require.Len(t, srv.signer.requests, 1)
	assert.Equal(t, "andy@example.com", srv.signer.requests[0].Customer.Email)

	srv.results.set(account.SignupResult{Loading: true})
	pending := srv.do(t, http.MethodGet, "/widgets/w1", nil)
	require.Equal(t, http.StatusOK, pending.Code)
	assert.Contains(t, pending.Body.String(), "Loading...")

	srv.results.set(account.SignupResult{Status: account.StatusRegistered})
	done := srv.do(t, http.MethodGet, "/widgets/w1", nil)
	require.Equal(t, http.StatusOK, done.Code)
	assert.Contains(t, done.Body.String(), "Hello, User")

	cookies := done.Result().Cookies()
	require.NotEmpty(t, cookies)

	page := srv.do(t, http.MethodGet, "/", nil, cookies...)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `data-view="loggedIn"`)
}

func TestLogout_ClearsSession(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	srv.seed(t, account.NewWidget("w1", true))

	rec := srv.do(t, http.MethodPost, "/widgets/w1/logout", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, account.ViewSignIn, srv.widget(t, "w1").View)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSubmit_RateLimited(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{
		Submit: config.RateLimitRule{Limit: 1, Window: time.Minute},
	})
	srv.seed(t, account.NewWidget("w1", false))

	first := srv.do(t, http.MethodPost, "/widgets/w1/submit", nil)
	assert.Equal(t, http.StatusConflict, first.Code)

	second := srv.do(t, http.MethodPost, "/widgets/w1/submit", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
}

func TestProbes(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	for _, path := range []string{"/livez", "/readyz"} {
		rec := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, health.StatusOK, rec.Body.String(), path)
	}

	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"storage":"OK"}`, rec.Body.String())
}
