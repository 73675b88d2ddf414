package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/services"
)

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if middleware.PrincipalFrom(c) != nil {
		redirect(c, "/dashboard")
		return
	}
	render(c, http.StatusOK, "login", gin.H{"Title": "Sign in"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	username := c.PostForm("username")
	outcome, err := h.Service.Login(c.Request.Context(), sess, username, c.PostForm("password"))
	if err != nil {
		msg := "Username and password are required."
		if !errors.Is(err, services.ErrMissingCredentials) {
			msg = backendMessage(err, "Invalid username or password")
		}
		flash(c, "error", msg)
		render(c, http.StatusOK, "login", gin.H{"Title": "Sign in", "Username": username})
		return
	}
	switch outcome {
	case services.LoginNeedsMFA:
		redirect(c, "/mfa-verify")
	case services.LoginNeedsMFASetup:
		redirect(c, "/mfa-setup")
	default:
		flash(c, "success", "Welcome back, "+sess.Principal.Username+"!")
		redirect(c, "/dashboard")
	}
}

func (h *AuthHandler) MFAVerifyPage(c *gin.Context) {
	if sess := middleware.SessionFrom(c); sess == nil || !sess.AwaitingMFA {
		redirect(c, "/login")
		return
	}
	render(c, http.StatusOK, "mfa_verify", gin.H{"Title": "Two-factor authentication"})
}

func (h *AuthHandler) MFAVerify(c *gin.Context) {
	p, err := h.Service.VerifyMFA(c.Request.Context(), middleware.SessionFrom(c), c.PostForm("mfa_code"))
	switch {
	case err == nil:
		flash(c, "success", "Welcome back, "+p.Username+"!")
		redirect(c, "/dashboard")
	case errors.Is(err, services.ErrMFANotPending):
		flash(c, "error", msgSessionExpired)
		redirect(c, "/login")
	case errors.Is(err, services.ErrInvalidCode):
		flash(c, "error", "Please enter a valid 6-digit code.")
		render(c, http.StatusOK, "mfa_verify", gin.H{"Title": "Two-factor authentication"})
	default:
		flash(c, "error", backendMessage(err, "Invalid authentication code"))
		render(c, http.StatusOK, "mfa_verify", gin.H{"Title": "Two-factor authentication"})
	}
}

func (h *AuthHandler) MFASetupPage(c *gin.Context) {
	setup, err := h.Service.BeginMFASetup(c.Request.Context(), middleware.SessionFrom(c))
	switch {
	case err == nil:
		render(c, http.StatusOK, "mfa_setup", gin.H{
			"Title":     "Set up two-factor authentication",
			"Secret":    setup.Secret,
			"QRCodeURL": setup.QRCodeURL,
		})
	case errors.Is(err, services.ErrReauthenticate):
		reauthenticate(c)
	default:
		flash(c, "error", "Error loading MFA setup. Please contact support.")
		render(c, http.StatusBadGateway, "mfa_setup_error", gin.H{
			"Title": "MFA setup unavailable",
			"Error": backendMessage(err, "Failed to generate MFA setup"),
		})
	}
}

func (h *AuthHandler) MFASetupVerify(c *gin.Context) {
	codes, err := h.Service.CompleteMFASetup(c.Request.Context(), middleware.SessionFrom(c),
		c.PostForm("secret"), c.PostForm("mfa_code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReauthenticate):
			reauthenticate(c)
			return
		case errors.Is(err, services.ErrInvalidInput):
			flash(c, "error", "Secret and MFA code are required.")
		case errors.Is(err, services.ErrInvalidCode):
			flash(c, "error", "Please enter a valid 6-digit code from your authenticator app.")
		case errors.Is(err, services.ErrSecretMismatch):
			flash(c, "error", "Security error. Please restart the MFA setup process.")
		default:
			flash(c, "error", backendMessage(err, "Invalid verification code"))
		}
		redirect(c, "/mfa-setup")
		return
	}
	flash(c, "success", "Two-factor authentication has been successfully enabled!")
	render(c, http.StatusOK, "mfa_backup_codes", gin.H{"Title": "Backup codes", "BackupCodes": codes})
}

func (h *AuthHandler) BackupCodesDone(c *gin.Context) {
	h.Service.FinishBackupCodes(middleware.SessionFrom(c))
	flash(c, "success", "MFA setup is now complete. You can now access the portal.")
	redirect(c, "/dashboard")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	_ = middleware.DestroySession(c)
	flash(c, "success", "You have been logged out.")
	redirect(c, "/login")
}

func (h *AuthHandler) Profile(c *gin.Context) {
	if err := h.Service.CheckToken(c.Request.Context(), middleware.PrincipalFrom(c)); err != nil {
		reauthenticate(c)
		return
	}
	render(c, http.StatusOK, "profile", gin.H{"Title": "Profile"})
}

// unauthorizedJSON ends the session for JSON callers.
func unauthorizedJSON(c *gin.Context) {
	_ = middleware.DestroySession(c)
	c.JSON(http.StatusUnauthorized, gin.H{"error": msgSessionExpired})
}
