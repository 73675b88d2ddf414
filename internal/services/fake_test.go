package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"loanportal/internal/backend"
	"loanportal/internal/models"
)

func notFound(kind models.Kind, id int) error {
	return fmt.Errorf("GET /%s/%d: %w", kind.Collection(), id, &backend.StatusError{StatusCode: 404})
}

func unauthorized() error {
	return fmt.Errorf("GET: %w", &backend.StatusError{StatusCode: 401})
}

// fakeBackend is an in-memory stand-in for every backend capability the
// services use.
type fakeBackend struct {
	mu   sync.Mutex
	data map[models.Kind][]models.Entity

	getErr  func(kind models.Kind, id int) error
	listErr func(kind models.Kind, q backend.Query) error
	fiErr   error
	fis     []string

	created map[models.Kind][]models.Entity
	deleted []string
	lists   []backend.Query

	// admin
	json      map[string]models.Entity
	jsonErr   map[string]error
	jsonQuery map[string]url.Values
	posts     []string

	// auth
	login        *backend.LoginResult
	loginErr     error
	mfaPrincipal *models.Principal
	mfaErr       error
	mfaTokens    []string
	setup        *backend.MFASetup
	backupCodes  []string
	adminAccess  *backend.AdminAccess
	adminErr     error
	adminChecks  int
	tokenErr     error
}

func newFake(data map[models.Kind][]models.Entity) *fakeBackend {
	return &fakeBackend{
		data:      data,
		created:   map[models.Kind][]models.Entity{},
		json:      map[string]models.Entity{},
		jsonErr:   map[string]error{},
		jsonQuery: map[string]url.Values{},
	}
}

func (f *fakeBackend) Get(ctx context.Context, p *models.Principal, kind models.Kind, id int) (models.Entity, error) {
	if f.getErr != nil {
		if err := f.getErr(kind, id); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.data[kind] {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, notFound(kind, id)
}

func (f *fakeBackend) List(ctx context.Context, p *models.Principal, kind models.Kind, q backend.Query) (*backend.Page, error) {
	f.mu.Lock()
	f.lists = append(f.lists, q)
	f.mu.Unlock()
	if f.listErr != nil {
		if err := f.listErr(kind, q); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Entity
	for _, e := range f.data[kind] {
		ok := true
		for field, want := range q.Filters {
			if e.String(field) != want {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	start := min(q.Skip, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return &backend.Page{Items: matched[start:end], Total: &total}, nil
}

func (f *fakeBackend) Create(ctx context.Context, p *models.Principal, kind models.Kind, payload models.Entity) (models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload["id"] = 100 + len(f.created[kind])
	f.created[kind] = append(f.created[kind], payload)
	return payload, nil
}

func (f *fakeBackend) Update(ctx context.Context, p *models.Principal, kind models.Kind, id int, payload models.Entity) (models.Entity, error) {
	if _, err := f.Get(ctx, p, kind, id); err != nil {
		return nil, err
	}
	payload["id"] = id
	return payload, nil
}

func (f *fakeBackend) Delete(ctx context.Context, p *models.Principal, kind models.Kind, id int) error {
	if _, err := f.Get(ctx, p, kind, id); err != nil {
		return err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, fmt.Sprintf("%s/%d", kind, id))
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) FinancialInstitutions(ctx context.Context, p *models.Principal, kind models.Kind) ([]string, error) {
	if f.fiErr != nil {
		return nil, f.fiErr
	}
	return f.fis, nil
}

func (f *fakeBackend) GetJSON(ctx context.Context, p *models.Principal, path string, query url.Values) (models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonQuery[path] = query
	if err := f.jsonErr[path]; err != nil {
		return nil, err
	}
	if body, ok := f.json[path]; ok {
		return body, nil
	}
	return nil, &backend.StatusError{StatusCode: 404}
}

func (f *fakeBackend) PostJSON(ctx context.Context, p *models.Principal, path string, body any) (models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, path)
	if err := f.jsonErr[path]; err != nil {
		return nil, err
	}
	return f.json[path], nil
}

func (f *fakeBackend) Login(ctx context.Context, username, password string) (*backend.LoginResult, error) {
	return f.login, f.loginErr
}

func (f *fakeBackend) VerifyMFA(ctx context.Context, tempToken, code string) (*models.Principal, error) {
	f.mfaTokens = append(f.mfaTokens, tempToken)
	return f.mfaPrincipal, f.mfaErr
}

func (f *fakeBackend) SetupMFA(ctx context.Context, p *models.Principal) (*backend.MFASetup, error) {
	return f.setup, nil
}

func (f *fakeBackend) VerifyMFASetup(ctx context.Context, p *models.Principal, secret, code string) ([]string, error) {
	return f.backupCodes, nil
}

func (f *fakeBackend) VerifyAdminAccess(ctx context.Context, p *models.Principal) (*backend.AdminAccess, error) {
	f.adminChecks++
	return f.adminAccess, f.adminErr
}

func (f *fakeBackend) VerifyToken(ctx context.Context, p *models.Principal) error {
	return f.tokenErr
}
