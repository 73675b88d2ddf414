package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"loanportal/internal/middleware"
	"loanportal/internal/models"
	"loanportal/internal/resolver"
	"loanportal/internal/services"
	"loanportal/internal/views"
)

// EntityHandler serves the list, detail and form pages of one kind.
type EntityHandler struct {
	Kind     models.Kind
	Entities *services.EntityService
	Details  *services.DetailService
}

func NewEntityHandler(kind models.Kind, entities *services.EntityService, details *services.DetailService) *EntityHandler {
	return &EntityHandler{Kind: kind, Entities: entities, Details: details}
}

func (h *EntityHandler) indexURL() string { return "/" + h.Kind.Collection() }

func (h *EntityHandler) detailURL(id int) string { return fmt.Sprintf("/%s/%d", h.Kind.Collection(), id) }

func (h *EntityHandler) notFound() string { return h.Kind.Title() + " not found." }

func (h *EntityHandler) Index(c *gin.Context) {
	q := c.Request.URL.Query()
	res, err := h.Entities.List(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, services.ListParamsFromQuery(h.Kind, q))
	if fail(c, err, h.notFound(), "Error loading "+h.Kind.Collection(), "/dashboard") {
		return
	}
	render(c, http.StatusOK, "entity_index", gin.H{
		"Title":        h.Kind.Title() + "s",
		"Kind":         h.Kind,
		"Result":       res,
		"FilterParams": models.ListFilters(h.Kind),
		"Pager":        views.NewPager(h.indexURL(), q, res.Page, res.TotalPages, res.Total, res.HasPrev, res.HasNext),
	})
}

func (h *EntityHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", h.notFound())
		redirect(c, h.indexURL())
		return
	}
	d, err := h.Details.Load(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, id)
	if fail(c, err, h.notFound(), "Error loading "+string(h.Kind), h.indexURL()) {
		return
	}

	data := gin.H{}
	for k, v := range d.Vars() {
		data[k] = v
	}
	data["Title"] = d.Entity.Label(h.Kind)
	data["Kind"] = h.Kind
	data["Entity"] = d.Entity
	data["Financials"] = d.Financials
	data["SecondaryContact"] = d.SecondaryContact
	data["Sections"] = sections(d)
	render(c, http.StatusOK, "entity_detail", data)
}

// sections lists the related kinds shown as tables; single references
// are shown inline by the template.
func sections(d *services.Detail) []views.Section {
	var out []views.Section
	for _, target := range resolver.Targets(d.Kind) {
		title := target.Title() + "s"
		if resolver.Singular(d.Kind, target) {
			title = target.Title()
		}
		if d.Kind == models.KindLoan && target == models.KindContact {
			title = "Primary contact"
		}
		s := views.Section{Kind: target, Title: title, Strategy: string(resolver.StrategyNone), Items: d.Many(target)}
		if r := d.Related[target]; r != nil {
			s.Strategy = string(r.Strategy)
		}
		out = append(out, s)
	}
	return out
}

func (h *EntityHandler) New(c *gin.Context) {
	// Links like /contacts/new?account_id=3 preselect the parent.
	prefill := models.Entity{}
	for _, in := range views.FormInputs(h.Kind) {
		if v := c.Query(in.Name); v != "" {
			prefill[in.Name] = v
		}
	}
	h.form(c, http.StatusOK, prefill, "New "+string(h.Kind), h.indexURL(), h.indexURL())
}

func (h *EntityHandler) Create(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		flash(c, "error", "Invalid form data.")
		redirect(c, h.indexURL()+"/new")
		return
	}
	e, err := h.Entities.Create(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, c.Request.PostForm)
	if err != nil {
		h.formError(c, err, "Error creating "+string(h.Kind), "New "+string(h.Kind), h.indexURL(), h.indexURL())
		return
	}
	flash(c, "success", h.Kind.Title()+" created successfully.")
	if id := e.ID(); id > 0 {
		redirect(c, h.detailURL(id))
		return
	}
	redirect(c, h.indexURL())
}

func (h *EntityHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", h.notFound())
		redirect(c, h.indexURL())
		return
	}
	e, err := h.Entities.Get(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, id)
	if fail(c, err, h.notFound(), "Error loading "+string(h.Kind), h.indexURL()) {
		return
	}
	h.form(c, http.StatusOK, e, "Edit "+e.Label(h.Kind), h.detailURL(id), h.detailURL(id))
}

func (h *EntityHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", h.notFound())
		redirect(c, h.indexURL())
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		flash(c, "error", "Invalid form data.")
		redirect(c, h.detailURL(id)+"/edit")
		return
	}
	_, err := h.Entities.Update(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, id, c.Request.PostForm)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, err, h.notFound(), "", h.indexURL())
			return
		}
		h.formError(c, err, "Error updating "+string(h.Kind), "Edit "+string(h.Kind), h.detailURL(id), h.detailURL(id))
		return
	}
	flash(c, "success", h.Kind.Title()+" updated successfully.")
	redirect(c, h.detailURL(id))
}

func (h *EntityHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, "error", h.notFound())
		redirect(c, h.indexURL())
		return
	}
	err := h.Entities.Delete(c.Request.Context(), middleware.PrincipalFrom(c), h.Kind, id)
	if errors.Is(err, services.ErrNotDeletable) {
		flash(c, "error", h.Kind.Title()+"s cannot be deleted here.")
		redirect(c, h.detailURL(id))
		return
	}
	if fail(c, err, h.notFound(), "Error deleting "+string(h.Kind), h.detailURL(id)) {
		return
	}
	flash(c, "success", h.Kind.Title()+" deleted.")
	redirect(c, h.indexURL())
}

// formError re-renders the submitted form with the reason, except for a
// rejected session.
func (h *EntityHandler) formError(c *gin.Context, err error, fallback, title, action, cancel string) {
	switch {
	case errors.Is(err, services.ErrReauthenticate):
		reauthenticate(c)
		return
	case errors.Is(err, services.ErrInvalidInput):
		flash(c, "error", "Invalid form data: "+strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": "))
	default:
		flash(c, "error", backendMessage(err, fallback))
	}
	h.form(c, http.StatusUnprocessableEntity, submitted(c.Request.PostForm), title, action, cancel)
}

func submitted(form url.Values) models.Entity {
	e := models.Entity{}
	for k, v := range form {
		if len(v) > 0 && k != middleware.CSRFField {
			e[k] = v[0]
		}
	}
	return e
}

func (h *EntityHandler) form(c *gin.Context, status int, e models.Entity, title, action, cancel string) {
	opts, err := h.Entities.FormOptions(c.Request.Context(), middleware.PrincipalFrom(c))
	if errors.Is(err, services.ErrReauthenticate) {
		reauthenticate(c)
		return
	}
	choices := map[models.Kind][]models.Entity{}
	if opts != nil {
		choices[models.KindAccount] = opts.Accounts
		choices[models.KindContact] = opts.Contacts
		choices[models.KindLoan] = opts.Loans
	}
	render(c, status, "entity_form", gin.H{
		"Title":   title,
		"Kind":    h.Kind,
		"Entity":  e,
		"Choices": choices,
		"Action":  action,
		"Cancel":  cancel,
	})
}
