package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"loanportal/internal/backend"
	"loanportal/internal/middleware"
	"loanportal/internal/models"
)

const maxProxyBody = 10 << 20

// Proxier relays a call to the backend unchanged.
type Proxier interface {
	Proxy(ctx context.Context, p *models.Principal, method, path string, query url.Values, body []byte) (*backend.ProxyResponse, error)
}

// APIHandler forwards /api/* to the backend with the session's token, for
// scripts on the rendered pages.
type APIHandler struct {
	Backend Proxier
}

func NewAPIHandler(b Proxier) *APIHandler {
	return &APIHandler{Backend: b}
}

// @Summary      Backend pass-through
// @Description  Forwards the call to the backend API with the session token and relays status and body unchanged
// @Tags         API
// @Produce      json
// @Param        path  path  string  true  "Backend path below the API prefix"
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/{path} [get]
func (h *APIHandler) Proxy(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}
	resp, err := h.Backend.Proxy(c.Request.Context(), middleware.PrincipalFrom(c), c.Request.Method, c.Param("path"), c.Request.URL.Query(), body)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": backendMessage(err, "Backend request failed")})
		return
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = middleware.DestroySession(c)
	}
	c.Data(resp.StatusCode, resp.ContentType, resp.Body)
}
