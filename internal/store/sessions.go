package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docvault/internal/auth"
	"github.com/docvault/internal/models"
)

// SessionStore is the SQL SessionStore. Expiry is not enforced here: an
// expired row stays active until the auth service deactivates it lazily.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, userID int64) (*models.Session, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(auth.SessionTTL),
		IsActive:  true,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*models.Session, error) {
	session := &models.Session{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at, is_active
		 FROM sessions WHERE token = $1`,
		token,
	).Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt, &session.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Invalidate flips an active session to inactive. It reports false when no
// active session matched, which covers tokens that were never issued as
// well as repeated logouts.
func (s *SessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE token = $1 AND is_active = TRUE`,
		token,
	)
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	return n > 0, nil
}

func (s *SessionStore) GetOwner(ctx context.Context, token string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.external_id, u.username, u.email, u.password_hash, u.created_at, u.updated_at
		 FROM users u
		 JOIN sessions s ON s.user_id = u.id
		 WHERE s.token = $1 AND s.is_active = TRUE`,
		token,
	).Scan(&user.ID, &user.ExternalID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session owner: %w", err)
	}
	return user, nil
}
