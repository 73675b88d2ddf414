package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"loanportal/internal/config"
	"loanportal/internal/repositories"
)

// Repository persists sealed session blobs.
type Repository interface {
	Get(ctx context.Context, id string, now time.Time) (*repositories.SessionRecord, error)
	Upsert(ctx context.Context, rec *repositories.SessionRecord) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostgresStore keeps session data server-side; the cookie carries only a
// signed session id.
type PostgresStore struct {
	codec  *codec
	repo   Repository
	name   string
	maxAge time.Duration
	secure bool
	log    *slog.Logger
}

func NewPostgresStore(cfg config.SessionConfig, repo Repository, logger *slog.Logger) (*PostgresStore, error) {
	c, err := newCodec(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		codec:  c,
		repo:   repo,
		name:   cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
		log:    logger.With("component", "sessions"),
	}, nil
}

func (s *PostgresStore) Load(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(s.name)
	if err != nil {
		return newSession(), nil
	}
	id, _, err := s.codec.parse(ck.Value)
	if err != nil {
		return newSession(), nil
	}
	rec, err := s.repo.Get(r.Context(), id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return newSession(), nil
	}
	sess := &Session{}
	if err := s.codec.open(rec.Data, sess); err != nil {
		s.log.Warn("discarding unreadable session", "err", err)
		return newSession(), nil
	}
	sess.ID = id
	sess.ExpiresAt = rec.ExpiresAt
	return sess, nil
}

func (s *PostgresStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	sess.ExpiresAt = time.Now().Add(s.maxAge)
	data, err := s.codec.seal(sess)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(r.Context(), &repositories.SessionRecord{
		ID:        sess.ID,
		Data:      data,
		ExpiresAt: sess.ExpiresAt,
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	token, err := s.codec.sign(sess.ID, nil, sess.ExpiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessionCookie(s.name, token, s.maxAge, s.secure))
	sess.dirty = false
	return nil
}

func (s *PostgresStore) Destroy(w http.ResponseWriter, r *http.Request, sess *Session) error {
	http.SetCookie(w, sessionCookie(s.name, "", -1, s.secure))
	if err := s.repo.Delete(r.Context(), sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RunJanitor deletes expired rows every interval until ctx is done.
func (s *PostgresStore) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.repo.DeleteExpired(ctx, now)
			if err != nil {
				s.log.Warn("session cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
