package authz

import (
	"strings"

	"loanportal/internal/models"
)

const (
	RoleAdmin         = "admin"
	RoleAdministrator = "administrator"
	RoleSystemAdmin   = "system_admin"
	RoleAuditor       = "auditor"
	RoleReadOnly      = "read_only"
)

var (
	adminRoles    = []string{RoleAdmin, RoleAdministrator, RoleSystemAdmin}
	readOnlyRoles = []string{RoleAuditor, RoleReadOnly}
)

// IsAdmin trusts the session flag first, then the role names.
func IsAdmin(p *models.Principal) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin || hasAny(p.Roles, adminRoles)
}

// IsReadOnly reports roles that may browse but not change anything.
// Admins are never read-only.
func IsReadOnly(p *models.Principal) bool {
	if p == nil || IsAdmin(p) {
		return false
	}
	return hasAny(p.Roles, readOnlyRoles)
}

func hasAny(roles, want []string) bool {
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
