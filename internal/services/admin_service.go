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

type AdminBackend interface {
	GetJSON(ctx context.Context, p *models.Principal, path string, query url.Values) (models.Entity, error)
	PostJSON(ctx context.Context, p *models.Principal, path string, body any) (models.Entity, error)
}

// UserAction is a one-click operation on a backend user account.
type UserAction string

const (
	ActionResetPassword UserAction = "reset-password"
	ActionResetMFA      UserAction = "reset-mfa"
	ActionUnlock        UserAction = "unlock"
)

func ParseUserAction(s string) (UserAction, error) {
	switch a := UserAction(s); a {
	case ActionResetPassword, ActionResetMFA, ActionUnlock:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown user action %q", ErrInvalidInput, s)
}

type UserFilters struct {
	Search string
	Role   string
	Status string // "active", "inactive" or empty
	MFA    string // "enabled", "disabled" or empty
}

type AdminDashboard struct {
	Stats          models.Entity
	AvailableRoles []string
	Users          []models.Entity
	Filters        UserFilters

	Page    int
	PerPage int
	Total   int
	HasPrev bool
	HasNext bool
}

type AuditLogs struct {
	Logs    []models.Entity
	Total   int
	Page    int
	PerPage int
	Action  string
	UserID  int
}

type AdminService struct {
	Backend AdminBackend
	log     *slog.Logger
}

func NewAdminService(b AdminBackend, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{Backend: b, log: logger.With("component", "admin")}
}

// Dashboard loads stats, roles and one page of users in parallel. Stats
// and roles are optional; the users page is not.
func (s *AdminService) Dashboard(ctx context.Context, p *models.Principal, page, perPage int, f UserFilters) (*AdminDashboard, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	d := &AdminDashboard{Filters: f, Page: page, PerPage: perPage, Stats: models.Entity{}, AvailableRoles: []string{}}

	q := url.Values{"page": {strconv.Itoa(page)}, "per_page": {strconv.Itoa(perPage)}}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Role != "" {
		q.Set("role", f.Role)
	}
	if f.Status != "" {
		q.Set("active_only", strconv.FormatBool(f.Status == "active"))
	}
	if f.MFA != "" {
		q.Set("mfa_enabled", strconv.FormatBool(f.MFA == "enabled"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.Backend.GetJSON(gctx, p, "/admin/stats", nil)
		if err != nil {
			return s.optional("stats", err)
		}
		d.Stats = stats
		return nil
	})
	g.Go(func() error {
		roles, err := s.Backend.GetJSON(gctx, p, "/admin/roles", nil)
		if err != nil {
			return s.optional("roles", err)
		}
		d.AvailableRoles = stringList(roles["available_roles"])
		return nil
	})
	g.Go(func() error {
		body, err := s.Backend.GetJSON(gctx, p, "/admin/users", q)
		if err != nil {
			return translate(err)
		}
		d.Users = entityList(body["users"])
		if n, ok := body.Int("page"); ok && n > 0 {
			d.Page = n
		}
		if n, ok := body.Int("total"); ok {
			d.Total = n
		}
		d.HasPrev, _ = body["has_prev"].(bool)
		d.HasNext, _ = body["has_next"].(bool)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *AdminService) optional(what string, err error) error {
	if backend.IsUnauthorized(err) {
		return translate(err)
	}
	s.log.Warn("admin data unavailable", "what", what, "err", err)
	return nil
}

// AuditLogs pages through /admin/audit-logs.
func (s *AdminService) AuditLogs(ctx context.Context, p *models.Principal, page, perPage int, action string, userID int) (*AuditLogs, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	q := url.Values{
		"skip":  {strconv.Itoa((page - 1) * perPage)},
		"limit": {strconv.Itoa(perPage)},
	}
	action = strings.TrimSpace(action)
	if action != "" {
		q.Set("action", action)
	}
	if userID > 0 {
		q.Set("user_id", strconv.Itoa(userID))
	}
	body, err := s.Backend.GetJSON(ctx, p, "/admin/audit-logs", q)
	if err != nil {
		return nil, translate(err)
	}
	out := &AuditLogs{Logs: entityList(body["logs"]), Page: page, PerPage: perPage, Action: action, UserID: userID}
	out.Total, _ = body.Int("total")
	return out, nil
}

// RunUserAction performs action on user id and returns the backend's
// message, if any.
func (s *AdminService) RunUserAction(ctx context.Context, p *models.Principal, id int, action UserAction) (string, error) {
	body, err := s.Backend.PostJSON(ctx, p, fmt.Sprintf("/admin/users/%d/%s", id, action), nil)
	if err != nil {
		return "", translate(err)
	}
	s.log.Info("user action", "action", action, "target_user", id, "user_id", p.UserID)
	return body.String("message"), nil
}

func entityList(v any) []models.Entity {
	list, _ := v.([]any)
	out := make([]models.Entity, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, models.Entity(m))
		}
	}
	return out
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			if name, ok := t["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}
