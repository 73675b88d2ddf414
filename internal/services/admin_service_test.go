package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanportal/internal/logging"
	"loanportal/internal/models"
)

func TestAdminService_Dashboard(t *testing.T) {
	b := newFake(nil)
	b.json["/admin/roles"] = models.Entity{"available_roles": []any{"admin", map[string]any{"name": "auditor"}}}
	b.json["/admin/users"] = models.Entity{
		"users":    []any{map[string]any{"id": json.Number("4"), "username": "bo"}},
		"page":     json.Number("2"),
		"total":    json.Number("51"),
		"has_prev": true,
		"has_next": false,
	}
	b.jsonErr["/admin/stats"] = errors.New("connection refused")
	s := NewAdminService(b, logging.Discard())

	d, err := s.Dashboard(context.Background(), principal, 2, 50,
		UserFilters{Search: "bo", Role: "admin", Status: "inactive", MFA: "enabled"})
	require.NoError(t, err)

	assert.Equal(t, models.Entity{}, d.Stats)
	assert.Equal(t, []string{"admin", "auditor"}, d.AvailableRoles)
	require.Len(t, d.Users, 1)
	assert.Equal(t, "bo", d.Users[0].String("username"))
	assert.Equal(t, 2, d.Page)
	assert.Equal(t, 51, d.Total)
	assert.True(t, d.HasPrev)
	assert.False(t, d.HasNext)

	q := b.jsonQuery["/admin/users"]
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "bo", q.Get("search"))
	assert.Equal(t, "false", q.Get("active_only"))
	assert.Equal(t, "true", q.Get("mfa_enabled"))
}

func TestAdminService_DashboardUnauthorized(t *testing.T) {
	b := newFake(nil)
	b.json["/admin/users"] = models.Entity{}
	b.jsonErr["/admin/stats"] = unauthorized()
	_, err := NewAdminService(b, logging.Discard()).Dashboard(context.Background(), principal, 1, 50, UserFilters{})
	assert.ErrorIs(t, err, ErrReauthenticate)
}

func TestAdminService_AuditLogs(t *testing.T) {
	b := newFake(nil)
	b.json["/admin/audit-logs"] = models.Entity{
		"logs":  []any{map[string]any{"action": "login"}},
		"total": json.Number("1"),
	}
	logs, err := NewAdminService(b, logging.Discard()).AuditLogs(context.Background(), principal, 3, 20, "login", 9)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Total)
	assert.Len(t, logs.Logs, 1)

	q := b.jsonQuery["/admin/audit-logs"]
	assert.Equal(t, "40", q.Get("skip"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "9", q.Get("user_id"))
}

func TestAdminService_UserAction(t *testing.T) {
	_, err := ParseUserAction("delete")
	assert.ErrorIs(t, err, ErrInvalidInput)

	action, err := ParseUserAction("reset-mfa")
	require.NoError(t, err)

	b := newFake(nil)
	b.json["/admin/users/4/reset-mfa"] = models.Entity{"message": "MFA reset"}
	msg, err := NewAdminService(b, logging.Discard()).RunUserAction(context.Background(), principal, 4, action)
	require.NoError(t, err)
	assert.Equal(t, "MFA reset", msg)
	assert.Equal(t, []string{"/admin/users/4/reset-mfa"}, b.posts)
}
