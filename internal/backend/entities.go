package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"loanportal/internal/models"
)

// Query is the one canonical way to ask for a collection.
type Query struct {
	Filters map[string]string
	Search  string
	Skip    int
	Limit   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if q.Filters[k] != "" {
			v.Set(k, q.Filters[k])
		}
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// parentFilter reports the single "<kind>_id" filter of q, if that is all
// q filters on.
func (q Query) parentFilter(target models.Kind) (models.Kind, string, bool) {
	if len(q.Filters) != 1 || q.Search != "" {
		return "", "", false
	}
	for key, val := range q.Filters {
		name, ok := strings.CutSuffix(key, "_id")
		if !ok || val == "" {
			return "", "", false
		}
		parent := models.Kind(name)
		if !parent.Valid() || parent == target {
			return "", "", false
		}
		return parent, val, true
	}
	return "", "", false
}

// Page is a normalized list response. Total is nil when the backend did
// not report one.
type Page struct {
	Items []models.Entity
	Total *int
}

// TotalOr returns the reported total, or fallback when there was none.
func (p *Page) TotalOr(fallback int) int {
	if p == nil || p.Total == nil {
		return fallback
	}
	return *p.Total
}

// normalizePage accepts a bare list, {"items": [...], "total": n} or
// {"items": [...]}. An object without items is an empty page.
func normalizePage(v any) (*Page, error) {
	switch body := v.(type) {
	case []any:
		items, err := entities(body)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items}, nil
	case map[string]any:
		raw, ok := body["items"]
		if !ok || raw == nil {
			return &Page{Items: []models.Entity{}}, nil
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: items is %T", ErrMalformedResponse, raw)
		}
		items, err := entities(list)
		if err != nil {
			return nil, err
		}
		page := &Page{Items: items}
		if total, ok := models.Entity(body).Int("total"); ok {
			page.Total = &total
		}
		return page, nil
	}
	return nil, fmt.Errorf("%w: want list or object, got %T", ErrMalformedResponse, v)
}

func entities(list []any) ([]models.Entity, error) {
	out := make([]models.Entity, 0, len(list))
	for i, it := range list {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %T", ErrMalformedResponse, i, it)
		}
		out = append(out, models.Entity(obj))
	}
	return out, nil
}

func entityPath(kind models.Kind, id int) string {
	return "/" + kind.Collection() + "/" + strconv.Itoa(id)
}

func (c *Client) Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	return c.getObject(ctx, p, entityPath(kind, id))
}

// List queries a collection. With legacy endpoints enabled, a filtered
// query the backend rejects with 404/405 is retried once on the nested
// /<parents>/<id>/<collection> form.
func (c *Client) List(ctx context.Context, p *models.Principal, kind models.Kind, q Query) (*Page, error) {
	path := "/" + kind.Collection() + "/"
	page, err := c.list(ctx, p, kind, path, q.values())
	if err == nil || !c.legacy {
		return page, err
	}
	if code := statusCode(err); code != http.StatusNotFound && code != http.StatusMethodNotAllowed {
		return nil, err
	}
	parent, id, ok := q.parentFilter(kind)
	if !ok {
		return nil, err
	}
	legacyPath := "/" + parent.Collection() + "/" + url.PathEscape(id) + "/" + kind.Collection()
	c.log.Warn("legacy endpoint shim exercised",
		"collection", kind.Collection(),
		"canonical", path,
		"legacy", legacyPath,
		"status", statusCode(err))
	c.metrics.LegacyShim(kind.Collection())

	rest := Query{Skip: q.Skip, Limit: q.Limit}
	return c.list(ctx, p, kind, legacyPath, rest.values())
}

func (c *Client) list(ctx context.Context, p *models.Principal, kind models.Kind, path string, query url.Values) (*Page, error) {
	resp, err := c.send(ctx, p, request{
		method:     http.MethodGet,
		path:       path,
		query:      query,
		collection: kind.Collection(),
	})
	if err != nil {
		return nil, err
	}
	var v any
	if err := decode(resp.body, &v); err != nil {
		return nil, err
	}
	return normalizePage(v)
}

func (c *Client) Create(ctx context.Context, p *models.Principal, kind models.Kind, payload models.Entity) (models.Entity, error) {
	resp, err := c.send(ctx, p, request{
		method:     http.MethodPost,
		path:       "/" + kind.Collection() + "/",
		json:       payload,
		collection: kind.Collection(),
	})
	if err != nil {
		return nil, err
	}
	return decodeOptionalObject(resp.body)
}

func (c *Client) Update(ctx context.Context, p *models.Principal, kind models.Kind, id int, payload models.Entity) (models.Entity, error) {
	resp, err := c.send(ctx, p, request{
		method:     http.MethodPut,
		path:       entityPath(kind, id),
		json:       payload,
		collection: kind.Collection(),
	})
	if err != nil {
		return nil, err
	}
	return decodeOptionalObject(resp.body)
}

func (c *Client) Delete(ctx context.Context, p *models.Principal, kind models.Kind, id int) error {
	_, err := c.send(ctx, p, request{
		method:     http.MethodDelete,
		path:       entityPath(kind, id),
		collection: kind.Collection(),
	})
	return err
}

// decodeOptionalObject tolerates empty bodies (204) on writes.
func decodeOptionalObject(body []byte) (models.Entity, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return models.Entity{}, nil
	}
	return decodeObject(body)
}

// FinancialInstitutions lists the lender names offered as a filter on the
// loan and case list pages.
func (c *Client) FinancialInstitutions(ctx context.Context, p *models.Principal, kind models.Kind) ([]string, error) {
	var path string
	switch kind {
	case models.KindLoan:
		path = "/loans/financial-institutions"
	case models.KindCase:
		path = "/cases/stats/financial-institutions"
	default:
		return nil, nil
	}
	resp, err := c.send(ctx, p, request{method: http.MethodGet, path: path, collection: kind.Collection()})
	if err != nil {
		return nil, err
	}
	var v any
	if err := decode(resp.body, &v); err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		v = obj["financial_institutions"]
	}
	list, ok := v.([]any)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, 0, len(list))
	for _, it := range list {
		switch x := it.(type) {
		case string:
			out = append(out, x)
		case map[string]any:
			if name := models.Entity(x).FirstString("name", "financial_institution"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out, nil
}
