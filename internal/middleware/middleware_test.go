package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanportal/internal/backend"
	"loanportal/internal/config"
	"loanportal/internal/logging"
	"loanportal/internal/models"
	"loanportal/internal/sessions"
)

func init() { gin.SetMode(gin.TestMode) }

func newStore(t *testing.T) *sessions.CookieStore {
	t.Helper()
	s, err := sessions.NewCookieStore(config.SessionConfig{
		SecretKey: "0123456789abcdef0123456789abcdef", CookieName: "lp_session", MaxAge: time.Hour,
	})
	require.NoError(t, err)
	return s
}

// loginCookie builds a cookie for a session logged in with the given roles
// and returns it with the session's CSRF token.
func loginCookie(t *testing.T, store sessions.Store, roles ...string) (*http.Cookie, string) {
	t.Helper()
	sess, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(&models.Principal{Token: "tok", UserID: 1, Username: "dee", Roles: roles})
	sess.CSRF = "csrf-123"
	w := httptest.NewRecorder()
	require.NoError(t, store.Save(w, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	return w.Result().Cookies()[0], sess.CSRF
}

func newRouter(store sessions.Store, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logging.Discard()), Sessions(store, logging.Discard()), CSRF())
	g := r.Group("/", RequireAuth(), ReadOnlyGuard())
	g.Use(extra...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	g.GET("/dashboard", ok)
	g.POST("/loans/create", ok)
	g.GET("/api/loans", ok)
	g.POST("/api/loans", ok)
	return r
}

func do(r http.Handler, method, target string, body url.Values, ck *http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if ck != nil {
		req.AddCookie(ck)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	store := newStore(t)
	r := newRouter(store)

	w := do(r, http.MethodGet, "/dashboard", nil, nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get(headerReqID))

	w = do(r, http.MethodGet, "/api/loans", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, w.Body.String())

	ck, _ := loginCookie(t, store)
	w = do(r, http.MethodGet, "/dashboard", nil, ck, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRF(t *testing.T) {
	store := newStore(t)
	r := newRouter(store)
	ck, token := loginCookie(t, store)

	w := do(r, http.MethodPost, "/loans/create", url.Values{"contract_number": {"X"}}, ck, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = do(r, http.MethodPost, "/loans/create", url.Values{CSRFField: {token}}, ck, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/loans", nil, ck, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/api/loans", nil, ck, map[string]string{CSRFHeader: token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadOnlyGuard(t *testing.T) {
	store := newStore(t)
	r := newRouter(store)
	ck, token := loginCookie(t, store, "auditor")

	w := do(r, http.MethodGet, "/dashboard", nil, ck, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/loans", nil, ck, map[string]string{CSRFHeader: token})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/loans/create", url.Values{CSRFField: {token}}, ck, nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

type stubChecker struct {
	ok  bool
	err error
}

func (s stubChecker) EnsureAdmin(context.Context, *sessions.Session) (bool, error) { return s.ok, s.err }

func TestRequireAdmin(t *testing.T) {
	store := newStore(t)
	ck, _ := loginCookie(t, store)

	tests := []struct {
		name     string
		checker  stubChecker
		code     int
		location string
	}{
		{name: "admin", checker: stubChecker{ok: true}, code: http.StatusOK},
		{name: "not admin", checker: stubChecker{}, code: http.StatusFound, location: "/dashboard"},
		{name: "backend down", checker: stubChecker{err: errors.New("dial tcp: refused")}, code: http.StatusFound, location: "/dashboard"},
		{
			name:     "token rejected",
			checker:  stubChecker{err: fmt.Errorf("verify: %w", &backend.StatusError{StatusCode: 401})},
			code:     http.StatusFound,
			location: "/login",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(store, RequireAdmin(tt.checker))
			w := do(r, http.MethodGet, "/dashboard", nil, ck, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestSessionsWritesBackChanges(t *testing.T) {
	store := newStore(t)
	r := gin.New()
	r.Use(Sessions(store, logging.Discard()))
	r.GET("/flash", func(c *gin.Context) {
		SessionFrom(c).AddFlash("info", "hello")
		require.NoError(t, SaveSession(c))
		c.Status(http.StatusNoContent)
	})
	w := do(r, http.MethodGet, "/flash", nil, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	sess, err := store.Load(req)
	require.NoError(t, err)
	assert.Equal(t, "hello", sess.PopFlashes()[0].Message)
}
