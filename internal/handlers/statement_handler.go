package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/models"
	"loanportal/internal/pdf"
	"loanportal/internal/services"
)

// StatementHandler serves loan statements as PDF downloads.
type StatementHandler struct {
	Details   *services.DetailService
	Generator pdf.Generator
}

func NewStatementHandler(details *services.DetailService, gen pdf.Generator) *StatementHandler {
	return &StatementHandler{Details: details, Generator: gen}
}

func (h *StatementHandler) Loan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", "Loan not found.")
		redirect(c, "/loans")
		return
	}
	d, err := h.Details.Load(c.Request.Context(), middleware.PrincipalFrom(c), models.KindLoan, id)
	if fail(c, err, "Loan not found.", "Error loading loan", "/loans") {
		return
	}

	data := pdf.StatementData{
		Loan:        d.Entity,
		Account:     d.One(models.KindAccount),
		Contact:     d.One(models.KindContact),
		GeneratedAt: time.Now(),
	}
	if d.Financials != nil {
		data.Financials = *d.Financials
	}
	var buf bytes.Buffer
	if err := h.Generator.LoanStatement(&buf, data); err != nil {
		_ = c.Error(err)
		flash(c, "error", "Unable to generate the statement.")
		redirect(c, fmt.Sprintf("/loans/%d", id))
		return
	}
	saveSession(c)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="loan-%d-statement.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
