package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loanportal/internal/models"
)

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(nil))
	assert.True(t, IsAdmin(&models.Principal{IsAdmin: true}))
	assert.True(t, IsAdmin(&models.Principal{Roles: []string{"collector", "System_Admin"}}))
	assert.False(t, IsAdmin(&models.Principal{Roles: []string{"collector"}}))
}

func TestIsReadOnly(t *testing.T) {
	assert.False(t, IsReadOnly(nil))
	assert.True(t, IsReadOnly(&models.Principal{Roles: []string{"auditor"}}))
	assert.True(t, IsReadOnly(&models.Principal{Roles: []string{"READ_ONLY"}}))
	assert.False(t, IsReadOnly(&models.Principal{Roles: []string{"auditor", "admin"}}))
	assert.False(t, IsReadOnly(&models.Principal{Roles: []string{"collector"}}))
}
