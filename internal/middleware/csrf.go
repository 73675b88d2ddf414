package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"loanportal/internal/utils"
)

const (
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

// CSRF issues a per-session token and checks it on unsafe methods, from
// the form field or the header used by scripts.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		if sess == nil {
			c.Next()
			return
		}
		if sess.CSRF == "" {
			sess.CSRF = utils.MustToken(32)
			sess.Touch()
		}
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFField)
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(sess.CSRF)) != 1 {
			if IsAPI(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
				return
			}
			sess.AddFlash("error", "Your form expired. Please try again.")
			redirect(c, backTo(c))
			return
		}
		c.Next()
	}
}

// CSRFToken returns the token for templates.
func CSRFToken(c *gin.Context) string {
	if sess := SessionFrom(c); sess != nil {
		return sess.CSRF
	}
	return ""
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// backTo picks a same-site page to return to after a rejected form.
func backTo(c *gin.Context) string {
	if ref := c.Request.Referer(); ref != "" {
		if u, err := c.Request.URL.Parse(ref); err == nil && u.Host == c.Request.Host {
			return u.RequestURI()
		}
	}
	return "/dashboard"
}
