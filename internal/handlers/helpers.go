package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loanportal/internal/authz"
	"loanportal/internal/backend"
	"loanportal/internal/middleware"
	"loanportal/internal/services"
)

const msgSessionExpired = "Session expired. Please log in again."

// render fills the values every page needs, saves the session (headers
// cannot change once the body starts) and writes the page.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	p := middleware.PrincipalFrom(c)
	data["Principal"] = p
	data["IsAdmin"] = authz.IsAdmin(p)
	data["ReadOnly"] = authz.IsReadOnly(p)
	data["CSRF"] = middleware.CSRFToken(c)
	if sess := middleware.SessionFrom(c); sess != nil {
		data["Flashes"] = sess.PopFlashes()
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = ""
	}
	saveSession(c)
	c.HTML(status, name, data)
}

func flash(c *gin.Context, category, message string) {
	if sess := middleware.SessionFrom(c); sess != nil {
		sess.AddFlash(category, message)
	}
}

// redirect saves the session and sends a 302.
func redirect(c *gin.Context, to string) {
	saveSession(c)
	c.Redirect(http.StatusFound, to)
}

func saveSession(c *gin.Context) {
	if err := middleware.SaveSession(c); err != nil {
		slog.Error("session save failed", "err", err, "request_id", middleware.RequestID(c))
	}
}

// reauthenticate ends the session and sends the browser to the login form.
func reauthenticate(c *gin.Context) {
	if err := middleware.DestroySession(c); err != nil {
		slog.Warn("session destroy failed", "err", err)
	}
	flash(c, "error", msgSessionExpired)
	redirect(c, "/login")
}

// fail maps a service error onto a flash and redirect. It reports whether
// it handled anything.
func fail(c *gin.Context, err error, notFound, fallback, back string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, services.ErrReauthenticate), backend.IsUnauthorized(err):
		reauthenticate(c)
	case notFound != "" && (errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrIDMismatch)):
		flash(c, "error", notFound)
		redirect(c, back)
	default:
		slog.Warn("request failed", "path", c.Request.URL.Path, "err", err, "request_id", middleware.RequestID(c))
		flash(c, "error", backendMessage(err, fallback))
		redirect(c, back)
	}
	return true
}

// backendMessage turns a backend failure into something a user can act on.
func backendMessage(err error, fallback string) string {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se):
		return backend.Detail(err, fallback)
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, backend.ErrMalformedResponse):
		return fallback
	case errors.Is(err, context.Canceled):
		return fallback
	}
	return "Cannot connect to the backend service. Please try again later."
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	return id, err == nil && id > 0
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}

func errorPage(c *gin.Context, status int, message string) {
	render(c, status, "error", gin.H{"Title": http.StatusText(status), "Status": status, "Message": message})
}

// NotFound renders the error page for unmatched routes.
func NotFound(c *gin.Context) {
	errorPage(c, http.StatusNotFound, "Page not found.")
}
