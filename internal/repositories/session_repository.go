package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRecord is one server-side web session. Data is sealed by the
// sessions package and opaque here.
type SessionRecord struct {
	ID        string
	Data      []byte
	ExpiresAt time.Time
	UpdatedAt time.Time
}

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// EnsureSchema creates the sessions table when it is missing.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	const q = `
                CREATE TABLE IF NOT EXISTS web_sessions (
                        id          TEXT PRIMARY KEY,
                        data        BYTEA NOT NULL,
                        expires_at  TIMESTAMPTZ NOT NULL,
                        updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
                );
                CREATE INDEX IF NOT EXISTS web_sessions_expires_at_idx ON web_sessions (expires_at);
        `
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure web_sessions: %w", err)
	}
	return nil
}

// Get returns nil, nil for unknown or expired sessions.
func (r *SessionRepository) Get(ctx context.Context, id string, now time.Time) (*SessionRecord, error) {
	const q = `
                SELECT id, data, expires_at, updated_at
                FROM web_sessions
                WHERE id=$1 AND expires_at > $2
        `
	var s SessionRecord
	if err := r.db.QueryRowContext(ctx, q, id, now).Scan(&s.ID, &s.Data, &s.ExpiresAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Upsert(ctx context.Context, s *SessionRecord) error {
	const q = `
                INSERT INTO web_sessions (id, data, expires_at, updated_at)
                VALUES ($1, $2, $3, now())
                ON CONFLICT (id) DO UPDATE
                SET data=EXCLUDED.data, expires_at=EXCLUDED.expires_at, updated_at=now()
        `
	if _, err := r.db.ExecContext(ctx, q, s.ID, s.Data, s.ExpiresAt); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM web_sessions WHERE id=$1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM web_sessions WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
