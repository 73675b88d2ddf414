// Package sessions keeps the per-browser state of the portal: the backend
// bearer token, the MFA handshake and flash messages.
package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"loanportal/internal/models"
)

var ErrCookieTooLarge = errors.New("sessions: cookie exceeds 4KB")

type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

type Session struct {
	ID        string            `json:"id"`
	Principal *models.Principal `json:"principal,omitempty"`
	// Token is kept outside Principal so it survives JSON encoding.
	Token string `json:"token,omitempty"`

	TempToken     string   `json:"temp_token,omitempty"`
	AwaitingMFA   bool     `json:"awaiting_mfa,omitempty"`
	NeedsMFASetup bool     `json:"needs_mfa_setup,omitempty"`
	MFASecret     string   `json:"mfa_secret,omitempty"`
	BackupCodes   []string `json:"backup_codes,omitempty"`

	CSRF    string  `json:"csrf,omitempty"`
	Flashes []Flash `json:"flashes,omitempty"`

	ExpiresAt time.Time `json:"-"`
	dirty     bool
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// SetPrincipal logs the session in as p.
func (s *Session) SetPrincipal(p *models.Principal) {
	s.Principal = p
	s.Token = ""
	if p != nil {
		s.Token = p.Token
	}
	s.dirty = true
}

// CurrentPrincipal returns the logged-in caller, or nil.
func (s *Session) CurrentPrincipal() *models.Principal {
	if s == nil || s.Principal == nil || s.Token == "" {
		return nil
	}
	p := *s.Principal
	p.Token = s.Token
	return &p
}

// Authenticated is true once login (and MFA, when required) completed.
func (s *Session) Authenticated() bool {
	return s.CurrentPrincipal() != nil && !s.AwaitingMFA
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	if len(f) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return f
}

// Clear logs out but keeps pending flashes so the login page can show why.
func (s *Session) Clear() {
	flashes := s.Flashes
	*s = Session{ID: uuid.NewString(), Flashes: flashes, dirty: true}
}

// Touch marks the session as changed so it gets written back.
func (s *Session) Touch() { s.dirty = true }

func (s *Session) Dirty() bool { return s.dirty }

// Store loads and persists sessions around one request.
type Store interface {
	// Load never fails on a missing or tampered cookie; it returns a
	// fresh session instead. Errors are reserved for storage failures.
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
	// Destroy forgets the session server-side and expires the cookie.
	Destroy(w http.ResponseWriter, r *http.Request, s *Session) error
}
