package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/models"
	"loanportal/internal/resolver"
	"loanportal/internal/services"
)

type RelatedHandler struct {
	Service *services.DetailService
}

func NewRelatedHandler(service *services.DetailService) *RelatedHandler {
	return &RelatedHandler{Service: service}
}

// @Summary      Resolve related entities
// @Description  Finds the target-kind entities related to one record and reports which strategy found them
// @Tags         Related
// @Produce      json
// @Param        kind    path      string  true  "Source kind"  Enums(account, contact, loan, asset, case)
// @Param        id      path      int     true  "Source id"
// @Param        target  path      string  true  "Target kind"  Enums(account, contact, loan, asset, case)
// @Success      200     {object}  resolver.Resolution
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      502     {object}  map[string]string
// @Router       /related/{kind}/{id}/{target} [get]
func (h *RelatedHandler) Resolve(c *gin.Context) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := models.ParseKind(c.Param("target"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res, err := h.Service.Related(c.Request.Context(), middleware.PrincipalFrom(c), kind, id, target)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, resolver.ErrNoRelation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrReauthenticate):
		unauthorizedJSON(c)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrIDMismatch):
		c.JSON(http.StatusNotFound, gin.H{"error": kind.Title() + " not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": backendMessage(err, "Error resolving related records")})
	}
}
