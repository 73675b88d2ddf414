package views

import (
	"net/url"
	"strconv"

	"loanportal/internal/models"
)

// Pager drives the shared pagination partial.
type Pager struct {
	Page       int
	TotalPages int
	Total      int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
}

// NewPager builds prev/next links for path, keeping every other query
// parameter of the current request.
func NewPager(path string, query url.Values, page, totalPages, total int, hasPrev, hasNext bool) Pager {
	p := Pager{Page: page, TotalPages: totalPages, Total: total, HasPrev: hasPrev, HasNext: hasNext}
	link := func(n int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(n))
		return path + "?" + q.Encode()
	}
	if hasPrev {
		p.PrevURL = link(page - 1)
	}
	if hasNext {
		p.NextURL = link(page + 1)
	}
	return p
}

// Section is one block of related entities on a detail page.
type Section struct {
	Kind     models.Kind
	Title    string
	Strategy string
	Items    []models.Entity
}
