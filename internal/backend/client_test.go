package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanportal/internal/config"
	"loanportal/internal/logging"
	"loanportal/internal/metrics"
	"loanportal/internal/models"
)

var alice = &models.Principal{Token: "tok-alice", Username: "alice"}

func newTestClient(t *testing.T, legacy bool, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{
		BaseURL:         srv.URL,
		APIPrefix:       "/api",
		RequestTimeout:  2 * time.Second,
		LegacyEndpoints: legacy,
	}, logging.Discard(), metrics.New(nil))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestList_Envelopes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantIDs   []int
		wantTotal *int
		wantErr   error
	}{
		{name: "bare list", body: `[{"id":1},{"id":2}]`, wantIDs: []int{1, 2}},
		{name: "items and total", body: `{"items":[{"id":3}],"total":41}`, wantIDs: []int{3}, wantTotal: ptr(41)},
		{name: "items only", body: `{"items":[{"id":4}]}`, wantIDs: []int{4}},
		{name: "object without items", body: `{"detail":"nothing here"}`, wantIDs: []int{}},
		{name: "scalar", body: `"oops"`, wantErr: ErrMalformedResponse},
		{name: "not json", body: `<html>`, wantErr: ErrMalformedResponse},
		{name: "items not a list", body: `{"items":{"id":1}}`, wantErr: ErrMalformedResponse},
		{name: "list of scalars", body: `[1,2]`, wantErr: ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})
			page, err := c.List(context.Background(), alice, models.KindLoan, Query{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]int, 0, len(page.Items))
			for _, it := range page.Items {
				ids = append(ids, it.ID())
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func ptr(n int) *int { return &n }

func TestList_SendsQueryAndToken(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assets/", r.URL.Path)
		assert.Equal(t, "Bearer tok-alice", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "9", q.Get("account_id"))
		assert.Equal(t, "civic", q.Get("search"))
		assert.Equal(t, "50", q.Get("skip"))
		assert.Equal(t, "25", q.Get("limit"))
		writeJSON(w, http.StatusOK, `[]`)
	})
	_, err := c.List(context.Background(), alice, models.KindAsset, Query{
		Filters: map[string]string{"account_id": "9"},
		Search:  "civic",
		Skip:    50,
		Limit:   25,
	})
	require.NoError(t, err)
}

func TestGet_StatusMapping(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/loans/1":
			writeJSON(w, http.StatusOK, `{"id":1,"loan_amount":1000.50}`)
		case "/api/loans/2":
			writeJSON(w, http.StatusUnauthorized, `{"detail":"expired"}`)
		case "/api/loans/3":
			writeJSON(w, http.StatusNotFound, `{"detail":"Loan not found"}`)
		case "/api/loans/4":
			writeJSON(w, http.StatusInternalServerError, `{"detail":"database is down"}`)
		case "/api/loans/5":
			writeJSON(w, http.StatusOK, `[1]`)
		}
	})
	ctx := context.Background()

	loan, err := c.Get(ctx, alice, models.KindLoan, 1)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1000.50"), loan["loan_amount"])

	_, err = c.Get(ctx, alice, models.KindLoan, 2)
	assert.True(t, IsUnauthorized(err))

	_, err = c.Get(ctx, alice, models.KindLoan, 3)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))

	_, err = c.Get(ctx, alice, models.KindLoan, 4)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "database is down", Detail(err, "fallback"))

	_, err = c.Get(ctx, alice, models.KindLoan, 5)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGet_Timeout(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, alice, models.KindAccount, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestList_LegacyShim(t *testing.T) {
	var calls []string
	h := func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/api/loans/":
			writeJSON(w, http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`)
		case "/api/accounts/3/loans":
			writeJSON(w, http.StatusOK, `{"items":[{"id":8,"account_id":3}],"total":1}`)
		default:
			writeJSON(w, http.StatusNotFound, `{}`)
		}
	}
	q := Query{Filters: map[string]string{"account_id": "3"}}

	t.Run("enabled", func(t *testing.T) {
		calls = nil
		c := newTestClient(t, true, h)
		page, err := c.List(context.Background(), alice, models.KindLoan, q)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, 8, page.Items[0].ID())
		assert.Equal(t, []string{"/api/loans/", "/api/accounts/3/loans"}, calls)
	})

	t.Run("disabled", func(t *testing.T) {
		calls = nil
		c := newTestClient(t, false, h)
		_, err := c.List(context.Background(), alice, models.KindLoan, q)
		require.Error(t, err)
		assert.Equal(t, []string{"/api/loans/"}, calls)
	})

	t.Run("not a single parent filter", func(t *testing.T) {
		calls = nil
		c := newTestClient(t, true, h)
		_, err := c.List(context.Background(), alice, models.KindLoan,
			Query{Filters: map[string]string{"account_id": "3", "contact_id": "4"}})
		require.Error(t, err)
		assert.Equal(t, []string{"/api/loans/"}, calls)
	})
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"abc","user_id":7,"username":"bob",
			"full_name":"Bob Stone","is_admin":false,"user_roles":["collector"],"requires_mfa":true}`)
	})

	res, err := c.Login(context.Background(), "bob", "s3cret")
	require.NoError(t, err)
	assert.True(t, res.RequiresMFA)
	assert.False(t, res.RequiresMFASetup)
	assert.Equal(t, &models.Principal{
		Token: "abc", UserID: 7, Username: "bob", FullName: "Bob Stone", Roles: []string{"collector"},
	}, res.Principal)

	_, err = c.Login(context.Background(), "bob", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", Detail(err, "Invalid username or password"))
}

func TestVerifyAdminAccess(t *testing.T) {
	t.Run("verify-access", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":true,"capabilities":{"is_admin":true},"user":{"roles":["admin"]}}`)
		})
		acc, err := c.VerifyAdminAccess(context.Background(), alice)
		require.NoError(t, err)
		assert.True(t, acc.IsAdmin)
		assert.Equal(t, []string{"admin"}, acc.Roles)
	})

	t.Run("stats fallback", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/admin/stats" {
				writeJSON(w, http.StatusOK, `{"total_users":3}`)
				return
			}
			writeJSON(w, http.StatusNotFound, `{}`)
		})
		acc, err := c.VerifyAdminAccess(context.Background(), alice)
		require.NoError(t, err)
		assert.True(t, acc.IsAdmin)
	})

	t.Run("forbidden", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"detail":"admins only"}`)
		})
		acc, err := c.VerifyAdminAccess(context.Background(), alice)
		require.NoError(t, err)
		assert.False(t, acc.IsAdmin)
	})
}

func TestProxy_PassesStatusThrough(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cases/5", r.URL.Path)
		writeJSON(w, http.StatusConflict, `{"detail":"locked"}`)
	})
	resp, err := c.Proxy(context.Background(), alice, http.MethodPut, "cases/5", nil, []byte(`{"status":"Closed"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"locked"}`, string(resp.Body))
}

func TestFinancialInstitutions(t *testing.T) {
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/loans/financial-institutions":
			writeJSON(w, http.StatusOK, `["First Bank","Credit Union"]`)
		case "/api/cases/stats/financial-institutions":
			writeJSON(w, http.StatusOK, `{"financial_institutions":[{"name":"First Bank"}]}`)
		}
	})
	got, err := c.FinancialInstitutions(context.Background(), alice, models.KindLoan)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Bank", "Credit Union"}, got)

	got, err = c.FinancialInstitutions(context.Background(), alice, models.KindCase)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Bank"}, got)
}

func TestStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes then a two-byte rune straddling the cut
	body := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)
	msg := (&StatusError{StatusCode: 500, Body: body}).Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, strings.Repeat("a", 199)+"..."))

	short := (&StatusError{StatusCode: 502, Body: "gateway é"}).Error()
	assert.Equal(t, "backend: status 502: gateway é", short)
}
