package routes

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanportal/internal/config"
	"loanportal/internal/handlers"
	"loanportal/internal/logging"
	"loanportal/internal/metrics"
	"loanportal/internal/models"
	"loanportal/internal/sessions"
)

type noAdmin struct{}

func (noAdmin) EnsureAdmin(context.Context, *sessions.Session) (bool, error) { return false, nil }

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := sessions.NewCookieStore(config.SessionConfig{
		SecretKey: "0123456789abcdef0123456789abcdef", CookieName: "lp_session", MaxAge: time.Hour,
	})
	require.NoError(t, err)

	h := Handlers{
		Auth:      &handlers.AuthHandler{},
		Dashboard: &handlers.DashboardHandler{},
		Entities:  map[models.Kind]*handlers.EntityHandler{},
		Statement: &handlers.StatementHandler{},
		Related:   &handlers.RelatedHandler{},
		API:       &handlers.APIHandler{},
		Admin:     &handlers.AdminHandler{},
		Health:    &handlers.HealthHandler{},
	}
	for _, k := range models.Kinds {
		h.Entities[k] = &handlers.EntityHandler{Kind: k}
	}
	r := SetupRoutes(gin.New(), h, store, noAdmin{}, metrics.New(nil), logging.Discard())

	got := map[string]bool{}
	for _, rt := range r.Routes() {
		got[rt.Method+" "+rt.Path] = true
	}
	for _, want := range []string{
		"GET /login", "POST /login", "GET /mfa-verify", "POST /mfa-setup/verify",
		"GET /dashboard", "GET /healthz", "GET /metrics", "GET /swagger/*any",
		"GET /accounts", "POST /accounts", "GET /accounts/new", "GET /accounts/:id",
		"GET /accounts/:id/edit", "POST /accounts/:id", "POST /cases/:id/delete",
		"GET /loans/:id/statement.pdf", "GET /related/:kind/:id/:target",
		"GET /api/*path", "POST /api/*path",
		"GET /admin", "GET /admin/logs", "POST /admin/users/:id/:action",
	} {
		assert.True(t, got[want], "missing %s", want)
	}
	for _, k := range models.Kinds {
		assert.Equal(t, k.Deletable(), got[http.MethodPost+" /"+k.Collection()+"/:id/delete"], k)
	}
}
