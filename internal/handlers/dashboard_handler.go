package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/services"
)

type DashboardHandler struct {
	Service *services.EntityService
}

func NewDashboardHandler(service *services.EntityService) *DashboardHandler {
	return &DashboardHandler{Service: service}
}

func (h *DashboardHandler) Index(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context(), middleware.PrincipalFrom(c))
	// Stats only fails when the token was rejected.
	if fail(c, err, "", "Error loading dashboard", "/login") {
		return
	}
	render(c, http.StatusOK, "dashboard", gin.H{"Title": "Dashboard", "Stats": stats})
}

// Home sends visitors to the dashboard or the login form.
func Home(c *gin.Context) {
	if middleware.PrincipalFrom(c) != nil {
		redirect(c, "/dashboard")
		return
	}
	redirect(c, "/login")
}
