package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"loanportal/internal/models"
	"loanportal/internal/sessions"
)

const (
	ctxSession   = "session"
	ctxPrincipal = "principal"
	ctxStore     = "session_store"
)

// Sessions loads the browser session before the handler runs and writes
// it back afterwards if the handler changed it without saving.
func Sessions(store sessions.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Load(c.Request)
		if err != nil {
			logger.Error("session load failed", "err", err, "request_id", RequestID(c))
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Set(ctxSession, sess)
		c.Set(ctxStore, store)
		if p := sess.CurrentPrincipal(); p != nil && sess.Authenticated() {
			c.Set(ctxPrincipal, p)
		}

		c.Next()

		if sess.Dirty() && !c.Writer.Written() {
			if err := store.Save(c.Writer, c.Request, sess); err != nil {
				logger.Error("session save failed", "err", err, "request_id", RequestID(c))
			}
		}
	}
}

func SessionFrom(c *gin.Context) *sessions.Session {
	v, _ := c.Get(ctxSession)
	s, _ := v.(*sessions.Session)
	return s
}

// PrincipalFrom returns the authenticated caller, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, _ := c.Get(ctxPrincipal)
	p, _ := v.(*models.Principal)
	return p
}

// SaveSession writes the session now; handlers call it before they render
// or redirect, since headers cannot change afterwards.
func SaveSession(c *gin.Context) error {
	sess := SessionFrom(c)
	v, _ := c.Get(ctxStore)
	store, _ := v.(sessions.Store)
	if sess == nil || store == nil || !sess.Dirty() {
		return nil
	}
	return store.Save(c.Writer, c.Request, sess)
}

// DestroySession logs the browser out everywhere the store can reach.
func DestroySession(c *gin.Context) error {
	sess := SessionFrom(c)
	v, _ := c.Get(ctxStore)
	store, _ := v.(sessions.Store)
	if sess == nil || store == nil {
		return nil
	}
	err := store.Destroy(c.Writer, c.Request, sess)
	sess.Clear()
	c.Set(ctxPrincipal, nil)
	return err
}

// IsAPI reports JSON endpoints, which get status codes instead of redirects.
func IsAPI(c *gin.Context) bool {
	p := c.Request.URL.Path
	return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/related/")
}

// RequireAuth lets authenticated sessions through. Pages redirect to the
// login form; JSON endpoints answer 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c) != nil {
			c.Next()
			return
		}
		if IsAPI(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if sess := SessionFrom(c); sess != nil {
			sess.AddFlash("error", "Please log in to access this page.")
		}
		redirect(c, "/login")
	}
}

func redirect(c *gin.Context, to string) {
	_ = SaveSession(c)
	c.Redirect(http.StatusFound, to)
	c.Abort()
}
