package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"loanportal/internal/authz"
	"loanportal/internal/backend"
	"loanportal/internal/models"
	"loanportal/internal/sessions"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCode        = errors.New("please enter a valid 6-digit code")
	ErrMFANotPending      = errors.New("no MFA verification in progress")
	ErrSecretMismatch     = errors.New("mfa secret does not match this session")
)

type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResult, error)
	VerifyMFA(ctx context.Context, tempToken, code string) (*models.Principal, error)
	SetupMFA(ctx context.Context, p *models.Principal) (*backend.MFASetup, error)
	VerifyMFASetup(ctx context.Context, p *models.Principal, secret, code string) ([]string, error)
	VerifyAdminAccess(ctx context.Context, p *models.Principal) (*backend.AdminAccess, error)
	VerifyToken(ctx context.Context, p *models.Principal) error
}

// LoginOutcome tells the handler where the user goes next.
type LoginOutcome int

const (
	LoginSucceeded LoginOutcome = iota
	LoginNeedsMFA
	LoginNeedsMFASetup
)

type AuthService struct {
	Backend AuthBackend
	log     *slog.Logger
}

func NewAuthService(b AuthBackend, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{Backend: b, log: logger.With("component", "auth")}
}

// Login authenticates against the backend and records the result in sess.
func (s *AuthService) Login(ctx context.Context, sess *sessions.Session, username, password string) (LoginOutcome, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginSucceeded, ErrMissingCredentials
	}
	res, err := s.Backend.Login(ctx, username, password)
	if err != nil {
		s.log.Warn("login failed", "username", username, "err", err)
		return LoginSucceeded, err
	}

	sess.Clear()
	sess.SetPrincipal(res.Principal)
	switch {
	case res.RequiresMFA:
		// The token only unlocks /auth/mfa/verify until the code is checked.
		sess.TempToken = sess.Token
		sess.Token = ""
		sess.AwaitingMFA = true
		s.log.Info("mfa verification required", "user_id", res.Principal.UserID)
		return LoginNeedsMFA, nil
	case res.RequiresMFASetup:
		sess.NeedsMFASetup = true
		s.log.Info("mfa setup required", "user_id", res.Principal.UserID)
		return LoginNeedsMFASetup, nil
	}
	s.log.Info("login succeeded", "user_id", res.Principal.UserID)
	return LoginSucceeded, nil
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// VerifyMFA completes a login that stopped at the second factor.
func (s *AuthService) VerifyMFA(ctx context.Context, sess *sessions.Session, code string) (*models.Principal, error) {
	code = strings.TrimSpace(code)
	if !validCode(code) {
		return nil, ErrInvalidCode
	}
	if !sess.AwaitingMFA || sess.TempToken == "" {
		return nil, ErrMFANotPending
	}
	p, err := s.Backend.VerifyMFA(ctx, sess.TempToken, code)
	if err != nil {
		s.log.Warn("mfa verification failed", "err", err)
		return nil, err
	}
	sess.SetPrincipal(p)
	sess.TempToken = ""
	sess.AwaitingMFA = false
	return p, nil
}

// BeginMFASetup asks the backend for a new authenticator secret and
// remembers it so the confirmation can be matched.
func (s *AuthService) BeginMFASetup(ctx context.Context, sess *sessions.Session) (*backend.MFASetup, error) {
	p := sess.CurrentPrincipal()
	if p == nil {
		return nil, ErrReauthenticate
	}
	setup, err := s.Backend.SetupMFA(ctx, p)
	if err != nil {
		return nil, translate(err)
	}
	sess.MFASecret = setup.Secret
	sess.Touch()
	return setup, nil
}

// CompleteMFASetup confirms enrollment and returns the backup codes.
func (s *AuthService) CompleteMFASetup(ctx context.Context, sess *sessions.Session, secret, code string) ([]string, error) {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return nil, ErrInvalidInput
	}
	if !validCode(code) {
		return nil, ErrInvalidCode
	}
	if sess.MFASecret == "" || sess.MFASecret != secret {
		sess.MFASecret = ""
		sess.Touch()
		return nil, ErrSecretMismatch
	}
	p := sess.CurrentPrincipal()
	if p == nil {
		return nil, ErrReauthenticate
	}
	codes, err := s.Backend.VerifyMFASetup(ctx, p, secret, code)
	if err != nil {
		s.log.Warn("mfa setup verification failed", "user_id", p.UserID, "err", err)
		return nil, translate(err)
	}
	sess.NeedsMFASetup = false
	sess.MFASecret = ""
	sess.BackupCodes = codes
	sess.Touch()
	s.log.Info("mfa enabled", "user_id", p.UserID)
	return codes, nil
}

// FinishBackupCodes forgets the codes once the user has seen them.
func (s *AuthService) FinishBackupCodes(sess *sessions.Session) {
	sess.BackupCodes = nil
	sess.Touch()
}

// EnsureAdmin trusts the session first and asks the backend otherwise,
// caching a positive answer in the session.
func (s *AuthService) EnsureAdmin(ctx context.Context, sess *sessions.Session) (bool, error) {
	p := sess.CurrentPrincipal()
	if p == nil {
		return false, nil
	}
	if authz.IsAdmin(p) {
		return true, nil
	}
	access, err := s.Backend.VerifyAdminAccess(ctx, p)
	if err != nil {
		return false, err
	}
	if !access.IsAdmin {
		return false, nil
	}
	sess.Principal.IsAdmin = true
	if len(access.Roles) > 0 {
		sess.Principal.Roles = access.Roles
	}
	sess.Touch()
	return true, nil
}

// CheckToken asks the backend whether the session token is still good.
// Only a rejected token is an error; an unreachable backend is logged.
func (s *AuthService) CheckToken(ctx context.Context, p *models.Principal) error {
	err := s.Backend.VerifyToken(ctx, p)
	if err == nil {
		return nil
	}
	if backend.IsUnauthorized(err) {
		return translate(err)
	}
	s.log.Warn("token check unavailable", "err", err)
	return nil
}
