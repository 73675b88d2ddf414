package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"loanportal/internal/backend"
	"loanportal/internal/models"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
	optionsLimit   = 100
)

// EntityBackend is the slice of the backend client the entity pages use.
type EntityBackend interface {
	Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error)
	List(ctx context.Context, p *models.Principal, kind models.Kind, q backend.Query) (*backend.Page, error)
	Create(ctx context.Context, p *models.Principal, kind models.Kind, payload models.Entity) (models.Entity, error)
	Update(ctx context.Context, p *models.Principal, kind models.Kind, id int, payload models.Entity) (models.Entity, error)
	Delete(ctx context.Context, p *models.Principal, kind models.Kind, id int) error
	FinancialInstitutions(ctx context.Context, p *models.Principal, kind models.Kind) ([]string, error)
}

type EntityService struct {
	Backend EntityBackend
	log     *slog.Logger
}

func NewEntityService(b EntityBackend, logger *slog.Logger) *EntityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityService{Backend: b, log: logger.With("component", "entities")}
}

type ListParams struct {
	Search  string
	Filters map[string]string // keyed by query parameter name
	Page    int
	PerPage int
}

// ListParamsFromQuery reads search, the kind's filters and pagination from
// a list page URL.
func ListParamsFromQuery(kind models.Kind, q url.Values) ListParams {
	p := ListParams{
		Search:  strings.TrimSpace(q.Get("search")),
		Filters: map[string]string{},
		Page:    atoiOr(q.Get("page"), 1),
		PerPage: atoiOr(q.Get("per_page"), DefaultPerPage),
	}
	for _, f := range models.ListFilters(kind) {
		vals, present := q[f.Query]
		switch {
		case present && len(vals) > 0:
			p.Filters[f.Query] = strings.TrimSpace(vals[0])
		case !present && f.Default != "":
			p.Filters[f.Query] = f.Default
		}
	}
	return p
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

type ListResult struct {
	Kind    models.Kind
	Items   []models.Entity
	Search  string
	Filters map[string]string

	Page       int
	PerPage    int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool

	FinancialInstitutions []string
}

func (s *EntityService) List(ctx context.Context, p *models.Principal, kind models.Kind, params ListParams) (*ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = DefaultPerPage
	}
	if params.PerPage > MaxPerPage {
		params.PerPage = MaxPerPage
	}
	skip := (params.Page - 1) * params.PerPage

	q := backend.Query{Filters: map[string]string{}, Search: params.Search, Skip: skip, Limit: params.PerPage}
	for _, f := range models.ListFilters(kind) {
		if v := params.Filters[f.Query]; v != "" {
			q.Filters[f.Backend] = v
		}
	}

	res := &ListResult{
		Kind:    kind,
		Search:  params.Search,
		Filters: params.Filters,
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.Backend.List(gctx, p, kind, q)
		if err != nil {
			return translate(err)
		}
		res.Items = page.Items
		if page.Total != nil {
			res.Total = *page.Total
			res.HasNext = skip+len(page.Items) < res.Total
		} else {
			res.Total = skip + len(page.Items)
			res.HasNext = len(page.Items) == params.PerPage
		}
		return nil
	})
	if kind == models.KindLoan || kind == models.KindCase {
		g.Go(func() error {
			fis, err := s.Backend.FinancialInstitutions(gctx, p, kind)
			if err != nil {
				s.log.Warn("financial institutions unavailable", "kind", kind, "err", err)
				fis = []string{}
			}
			res.FinancialInstitutions = fis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.TotalPages = (res.Total + res.PerPage - 1) / res.PerPage
	if res.TotalPages < 1 {
		res.TotalPages = 1
	}
	if res.HasNext && res.TotalPages <= res.Page {
		res.TotalPages = res.Page + 1
	}
	res.HasPrev = res.Page > 1
	return res, nil
}

func (s *EntityService) Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	e, err := s.Backend.Get(ctx, p, kind, id)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (s *EntityService) Create(ctx context.Context, p *models.Principal, kind models.Kind, form url.Values) (models.Entity, error) {
	payload, err := models.PayloadFromForm(kind, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	e, err := s.Backend.Create(ctx, p, kind, payload)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info("created", "kind", kind, "id", e.ID(), "user_id", p.UserID)
	return e, nil
}

func (s *EntityService) Update(ctx context.Context, p *models.Principal, kind models.Kind, id int, form url.Values) (models.Entity, error) {
	payload, err := models.PayloadFromForm(kind, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	e, err := s.Backend.Update(ctx, p, kind, id, payload)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info("updated", "kind", kind, "id", id, "user_id", p.UserID)
	return e, nil
}

func (s *EntityService) Delete(ctx context.Context, p *models.Principal, kind models.Kind, id int) error {
	if !kind.Deletable() {
		return ErrNotDeletable
	}
	if err := s.Backend.Delete(ctx, p, kind, id); err != nil {
		return translate(err)
	}
	s.log.Info("deleted", "kind", kind, "id", id, "user_id", p.UserID)
	return nil
}

// FormOptions are the dropdown choices on create/edit forms.
type FormOptions struct {
	Accounts []models.Entity
	Contacts []models.Entity
	Loans    []models.Entity
}

// FormOptions loads dropdown data in parallel. A failing list leaves its
// dropdown empty; only a rejected token is an error.
func (s *EntityService) FormOptions(ctx context.Context, p *models.Principal) (*FormOptions, error) {
	out := &FormOptions{}
	g, gctx := errgroup.WithContext(ctx)
	load := func(kind models.Kind, dst *[]models.Entity) {
		g.Go(func() error {
			page, err := s.Backend.List(gctx, p, kind, backend.Query{Limit: optionsLimit})
			if err != nil {
				if backend.IsUnauthorized(err) {
					return translate(err)
				}
				s.log.Warn("form options unavailable", "kind", kind, "err", err)
				*dst = []models.Entity{}
				return nil
			}
			*dst = page.Items
			return nil
		})
	}
	load(models.KindAccount, &out.Accounts)
	load(models.KindContact, &out.Contacts)
	load(models.KindLoan, &out.Loans)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DashboardStats are the headline counts on the landing page.
type DashboardStats struct {
	TotalAccounts int
	TotalContacts int
	ActiveLoans   int
	OpenCases     int
}

// Stats counts through the list endpoints. A failing count shows as zero.
func (s *EntityService) Stats(ctx context.Context, p *models.Principal) (*DashboardStats, error) {
	out := &DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)
	count := func(kind models.Kind, filters map[string]string, dst *int) {
		g.Go(func() error {
			page, err := s.Backend.List(gctx, p, kind, backend.Query{Filters: filters, Limit: 1})
			if err != nil {
				if backend.IsUnauthorized(err) {
					return translate(err)
				}
				s.log.Warn("dashboard count unavailable", "kind", kind, "err", err)
				return nil
			}
			*dst = page.TotalOr(len(page.Items))
			return nil
		})
	}
	count(models.KindAccount, nil, &out.TotalAccounts)
	count(models.KindContact, nil, &out.TotalContacts)
	count(models.KindLoan, map[string]string{"loan_status": "Active"}, &out.ActiveLoans)
	count(models.KindCase, map[string]string{"status": "Open"}, &out.OpenCases)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
