package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"loanportal/internal/authz"
	"loanportal/internal/backend"
	"loanportal/internal/sessions"
)

// ReadOnlyGuard rejects unsafe methods for auditor/read-only roles.
func ReadOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) || !authz.IsReadOnly(PrincipalFrom(c)) {
			c.Next()
			return
		}
		if IsAPI(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "read-only role"})
			return
		}
		if sess := SessionFrom(c); sess != nil {
			sess.AddFlash("error", "Your role has read-only access.")
		}
		redirect(c, backTo(c))
	}
}

// AdminChecker decides admin access, possibly asking the backend. A
// rejected token surfaces as an error wrapping backend.ErrUnauthorized.
type AdminChecker interface {
	EnsureAdmin(ctx context.Context, sess *sessions.Session) (bool, error)
}

func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		ok, err := checker.EnsureAdmin(c.Request.Context(), sess)
		switch {
		case backend.IsUnauthorized(err):
			_ = DestroySession(c)
			sess.AddFlash("error", "Session expired. Please log in again.")
			redirect(c, "/login")
		case err != nil:
			_ = c.Error(err)
			sess.AddFlash("error", "Unable to verify admin access.")
			redirect(c, "/dashboard")
		case !ok:
			sess.AddFlash("error", "Admin access required.")
			redirect(c, "/dashboard")
		default:
			c.Next()
		}
	}
}
