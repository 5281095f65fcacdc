// Package session provides the Redis-backed SessionStore. Sessions live
// under a TTL equal to their validity window, so an expired session simply
// disappears; callers cannot tell that apart from one invalidated by logout,
// which is exactly the contract.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docvault/internal/auth"
	"github.com/docvault/internal/models"
)

const keyPrefix = "session:"

// UserLookup resolves the owning user when a session is created and when a
// token is introspected. Returns (nil, nil) for an unknown id.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RedisStore implements auth.SessionStore on a Redis instance.
type RedisStore struct {
	client *redis.Client
	users  UserLookup
}

func NewRedisStore(client *redis.Client, users UserLookup) *RedisStore {
	return &RedisStore{client: client, users: users}
}

// record is the JSON shape stored per token.
type record struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Create(ctx context.Context, userID int64) (*models.Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("create session: user %d not found", userID)
	}

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

	data, err := json.Marshal(record{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, data, auth.SessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &models.Session{
		Token:     token,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		IsActive:  true,
	}, nil
}

// Invalidate deletes the session key. Redis reports how many keys were
// removed, which doubles as the "was there an active session" answer.
func (s *RedisStore) Invalidate(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) GetOwner(ctx context.Context, token string) (*models.User, error) {
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return s.users.GetByID(ctx, session.UserID)
}
