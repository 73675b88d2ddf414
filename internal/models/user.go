package models

import "slices"

// Principal is the authenticated caller as the backend knows them. It is
// passed explicitly into every backend call.
type Principal struct {
	Token    string   `json:"-"`
	UserID   int      `json:"user_id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	IsAdmin  bool     `json:"is_admin"`
	Roles    []string `json:"user_roles"`
}

func (p *Principal) HasRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}
