package resolver

import (
	"context"
	"fmt"
	"sync"

	"loanportal/internal/backend"
	"loanportal/internal/models"
)

// fakeBackend serves entities from memory and records list queries.
type fakeBackend struct {
	mu sync.Mutex

	data map[models.Kind][]models.Entity
	// ignoreFilters mimics a backend that drops unknown query params.
	ignoreFilters bool
	getErr        func(kind models.Kind, id int) error
	listErr       func(kind models.Kind, q backend.Query) error
	// block makes matching list calls hang until their context ends.
	block func(kind models.Kind, q backend.Query) bool

	gets  []string
	lists []backend.Query
}

func newFake(data map[models.Kind][]models.Entity) *fakeBackend {
	return &fakeBackend{data: data}
}

func (f *fakeBackend) Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	f.mu.Lock()
	f.gets = append(f.gets, fmt.Sprintf("%s/%d", kind, id))
	f.mu.Unlock()
	if f.getErr != nil {
		if err := f.getErr(kind, id); err != nil {
			return nil, err
		}
	}
	for _, e := range f.data[kind] {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("GET /%s/%d: %w", kind.Collection(), id, &backend.StatusError{StatusCode: 404})
}

func (f *fakeBackend) List(ctx context.Context, p *models.Principal, kind models.Kind, q backend.Query) (*backend.Page, error) {
	f.mu.Lock()
	f.lists = append(f.lists, q)
	f.mu.Unlock()
	if f.block != nil && f.block(kind, q) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.listErr != nil {
		if err := f.listErr(kind, q); err != nil {
			return nil, err
		}
	}
	var items []models.Entity
	for _, e := range f.data[kind] {
		if !f.ignoreFilters && !matchesFilters(e, q.Filters) {
			continue
		}
		items = append(items, e)
	}
	total := len(items)
	if q.Skip > 0 {
		if q.Skip >= len(items) {
			items = nil
		} else {
			items = items[q.Skip:]
		}
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	if items == nil {
		items = []models.Entity{}
	}
	return &backend.Page{Items: items, Total: &total}, nil
}

func matchesFilters(e models.Entity, filters map[string]string) bool {
	for k, v := range filters {
		if e.String(k) != v {
			return false
		}
	}
	return true
}

func (f *fakeBackend) filteredCalls() []backend.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []backend.Query
	for _, q := range f.lists {
		if len(q.Filters) > 0 {
			out = append(out, q)
		}
	}
	return out
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists)
}
