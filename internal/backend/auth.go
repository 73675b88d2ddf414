package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"loanportal/internal/models"
)

type userInfo struct {
	UserID   int      `json:"user_id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	IsAdmin  bool     `json:"is_admin"`
	Roles    []string `json:"user_roles"`
}

func (u userInfo) principal(token string) *models.Principal {
	return &models.Principal{
		Token:    token,
		UserID:   u.UserID,
		Username: u.Username,
		FullName: u.FullName,
		IsAdmin:  u.IsAdmin,
		Roles:    u.Roles,
	}
}

// LoginResult is the backend's answer to a password login.
type LoginResult struct {
	Principal        *models.Principal
	RequiresMFA      bool
	RequiresMFASetup bool
}

// Login posts the credentials form-encoded, as the token endpoint expects.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := c.send(ctx, nil, request{
		method:     http.MethodPost,
		path:       "/auth/login",
		body:       strings.NewReader(form.Encode()),
		header:     http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		collection: "auth",
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		AccessToken      string `json:"access_token"`
		RequiresMFA      bool   `json:"requires_mfa"`
		RequiresMFASetup bool   `json:"requires_mfa_setup"`
		userInfo
	}
	if err := decode(resp.body, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("login response without access_token"))
	}
	return &LoginResult{
		Principal:        body.userInfo.principal(body.AccessToken),
		RequiresMFA:      body.RequiresMFA,
		RequiresMFASetup: body.RequiresMFASetup,
	}, nil
}

// VerifyMFA trades the temporary login token and a one-time code for the
// real session token.
func (c *Client) VerifyMFA(ctx context.Context, tempToken, code string) (*models.Principal, error) {
	resp, err := c.send(ctx, &models.Principal{Token: tempToken}, request{
		method:     http.MethodPost,
		path:       "/auth/mfa/verify",
		json:       map[string]string{"mfa_code": code},
		collection: "auth",
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		AccessToken string   `json:"access_token"`
		User        userInfo `json:"user"`
	}
	if err := decode(resp.body, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("mfa response without access_token"))
	}
	return body.User.principal(body.AccessToken), nil
}

type MFASetup struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

func (c *Client) SetupMFA(ctx context.Context, p *models.Principal) (*MFASetup, error) {
	resp, err := c.send(ctx, p, request{method: http.MethodPost, path: "/auth/mfa/setup", collection: "auth"})
	if err != nil {
		return nil, err
	}
	var out MFASetup
	if err := decode(resp.body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFASetup confirms the authenticator enrollment and returns the
// backup codes to show once.
func (c *Client) VerifyMFASetup(ctx context.Context, p *models.Principal, secret, code string) ([]string, error) {
	resp, err := c.send(ctx, p, request{
		method:     http.MethodPost,
		path:       "/auth/mfa/verify-setup",
		json:       map[string]string{"secret": secret, "mfa_code": code},
		collection: "auth",
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		BackupCodes []string `json:"backup_codes"`
	}
	if err := decode(resp.body, &body); err != nil {
		return nil, err
	}
	return body.BackupCodes, nil
}

func (c *Client) VerifyToken(ctx context.Context, p *models.Principal) error {
	_, err := c.send(ctx, p, request{method: http.MethodGet, path: "/auth/verify-token", collection: "auth"})
	return err
}

// AdminAccess is what the backend says about the caller's admin rights.
type AdminAccess struct {
	IsAdmin      bool
	Roles        []string
	Capabilities map[string]any
}

// VerifyAdminAccess asks /admin/verify-access and falls back to probing
// /admin/stats on older backends, where a 200 means admin.
func (c *Client) VerifyAdminAccess(ctx context.Context, p *models.Principal) (*AdminAccess, error) {
	resp, err := c.send(ctx, p, request{method: http.MethodGet, path: "/admin/verify-access", collection: "admin"})
	if err == nil {
		var body struct {
			Success      bool           `json:"success"`
			Capabilities map[string]any `json:"capabilities"`
			User         struct {
				Roles []string `json:"roles"`
			} `json:"user"`
		}
		if derr := decode(resp.body, &body); derr == nil {
			isAdmin, _ := body.Capabilities["is_admin"].(bool)
			if body.Success && isAdmin {
				return &AdminAccess{IsAdmin: true, Roles: body.User.Roles, Capabilities: body.Capabilities}, nil
			}
		}
	}

	_, err = c.send(ctx, p, request{method: http.MethodGet, path: "/admin/stats", collection: "admin"})
	var se *StatusError
	switch {
	case err == nil:
		return &AdminAccess{IsAdmin: true}, nil
	case errors.Is(err, ErrUnauthorized):
		return nil, err
	case errors.As(err, &se):
		return &AdminAccess{IsAdmin: false}, nil
	default:
		return nil, err
	}
}
