package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

// SessionDB implements repository.SessionRepository.
//
// Tokens are generated by the caller (the auth service), not here — the
// repository stores whatever opaque token it is handed.
type SessionDB struct {
	conn *sql.DB
}

var _ repository.SessionRepository = (*SessionDB)(nil)

func (s *SessionDB) Create(ctx context.Context, session *model.Session) error {
	if session.Token == "" {
		return fmt.Errorf("sqlite: creating session: token must be set")
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivity.IsZero() {
		session.LastActivity = now
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, username, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?)`,
		session.Token,
		session.UserID,
		session.Username,
		session.CreatedAt,
		session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}

	return nil
}

func (s *SessionDB) Get(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	err := s.conn.QueryRowContext(ctx,
		`SELECT token, user_id, username, created_at, last_activity
		 FROM sessions
		 WHERE token = ?`,
		token,
	).Scan(
		&session.Token,
		&session.UserID,
		&session.Username,
		&session.CreatedAt,
		&session.LastActivity,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// Unknown/forged tokens are expected traffic, not a failure.
			return nil, apperror.NotFound("session", token)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	return &session, nil
}

func (s *SessionDB) Touch(ctx context.Context, token string, now time.Time) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE token = ?`,
		now.UTC(), token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("session", token)
	}

	return nil
}

// Delete removes a session. Deleting an already-gone token is not an error —
// logout must be idempotent.
func (s *SessionDB) Delete(ctx context.Context, token string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = ?`, token,
	); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

func (s *SessionDB) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweeping idle sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected, nil
}
