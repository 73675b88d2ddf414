package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/services"
	"loanportal/internal/views"
)

var userActions = []services.UserAction{services.ActionResetPassword, services.ActionResetMFA, services.ActionUnlock}

type AdminHandler struct {
	Service *services.AdminService
}

func NewAdminHandler(service *services.AdminService) *AdminHandler {
	return &AdminHandler{Service: service}
}

func (h *AdminHandler) Index(c *gin.Context) {
	f := services.UserFilters{
		Search: strings.TrimSpace(c.Query("search")),
		Role:   c.Query("role"),
		Status: c.Query("status"),
		MFA:    c.Query("mfa"),
	}
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", services.DefaultPerPage)
	if perPage > services.MaxPerPage {
		perPage = services.MaxPerPage
	}
	d, err := h.Service.Dashboard(c.Request.Context(), middleware.PrincipalFrom(c), page, perPage, f)
	if fail(c, err, "", "Error loading admin dashboard", "/dashboard") {
		return
	}
	render(c, http.StatusOK, "admin", gin.H{
		"Title":     "Administration",
		"Dashboard": d,
		"Actions":   userActions,
		"Pager":     views.NewPager("/admin", c.Request.URL.Query(), d.Page, totalPages(d.Total, d.PerPage), d.Total, d.HasPrev, d.HasNext),
	})
}

func (h *AdminHandler) Logs(c *gin.Context) {
	page := queryInt(c, "page", 1)
	logs, err := h.Service.AuditLogs(c.Request.Context(), middleware.PrincipalFrom(c), page, services.DefaultPerPage, c.Query("action"), queryInt(c, "user_id", 0))
	if fail(c, err, "", "Error loading audit logs", "/admin") {
		return
	}
	pages := totalPages(logs.Total, logs.PerPage)
	render(c, http.StatusOK, "admin_logs", gin.H{
		"Title": "Audit logs",
		"Logs":  logs,
		"Pager": views.NewPager("/admin/logs", c.Request.URL.Query(), logs.Page, pages, logs.Total, logs.Page > 1, logs.Page < pages),
	})
}

func (h *AdminHandler) UserAction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", "User not found.")
		redirect(c, "/admin")
		return
	}
	action, err := services.ParseUserAction(c.Param("action"))
	if err != nil {
		flash(c, "error", "Unknown action.")
		redirect(c, "/admin")
		return
	}
	msg, err := h.Service.RunUserAction(c.Request.Context(), middleware.PrincipalFrom(c), id, action)
	if errors.Is(err, services.ErrNotFound) {
		flash(c, "error", "User not found.")
		redirect(c, "/admin")
		return
	}
	if fail(c, err, "", "Action failed", "/admin") {
		return
	}
	if msg == "" {
		msg = "Action completed."
	}
	flash(c, "success", msg)
	redirect(c, "/admin")
}

func totalPages(total, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
