package sessions

import (
	"net/http"
	"time"

	"loanportal/internal/config"
)

const maxCookieBytes = 4000

// CookieStore keeps the whole session inside a signed, sealed cookie.
type CookieStore struct {
	codec  *codec
	name   string
	maxAge time.Duration
	secure bool
}

func NewCookieStore(cfg config.SessionConfig) (*CookieStore, error) {
	c, err := newCodec(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	return &CookieStore{codec: c, name: cfg.CookieName, maxAge: cfg.MaxAge, secure: cfg.Secure}, nil
}

func (s *CookieStore) Load(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(s.name)
	if err != nil {
		return newSession(), nil
	}
	id, data, err := s.codec.parse(ck.Value)
	if err != nil || len(data) == 0 {
		return newSession(), nil
	}
	sess := &Session{}
	if err := s.codec.open(data, sess); err != nil {
		return newSession(), nil
	}
	sess.ID = id
	return sess, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	sess.ExpiresAt = time.Now().Add(s.maxAge)
	data, err := s.codec.seal(sess)
	if err != nil {
		return err
	}
	token, err := s.codec.sign(sess.ID, data, sess.ExpiresAt)
	if err != nil {
		return err
	}
	if len(token) > maxCookieBytes {
		return ErrCookieTooLarge
	}
	http.SetCookie(w, sessionCookie(s.name, token, s.maxAge, s.secure))
	sess.dirty = false
	return nil
}

func (s *CookieStore) Destroy(w http.ResponseWriter, r *http.Request, sess *Session) error {
	http.SetCookie(w, sessionCookie(s.name, "", -1, s.secure))
	return nil
}

func sessionCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(maxAge.Seconds())
	}
	return ck
}
