// Package auth implements the session and credential lifecycle: registration,
// login, logout and token introspection. Durable user records and ephemeral
// session records live behind the CredentialStore and SessionStore interfaces;
// the service itself holds no state of its own.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docvault/internal/models"
)

// CredentialStore persists user records. Verify returns (nil, nil) when the
// username is unknown or the password does not match; the store never says
// which. Password hashing is the store's concern, opaque to the service.
type CredentialStore interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

// SessionStore persists login sessions keyed by token. Get and GetOwner
// return (nil, nil) on a miss. Invalidate reports whether an active session
// was actually invalidated. A TTL-backed implementation may drop records at
// expiry instead of flipping IsActive; both read the same to the service.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (*models.Session, error)
	Get(ctx context.Context, token string) (*models.Session, error)
	Invalidate(ctx context.Context, token string) (bool, error)
	GetOwner(ctx context.Context, token string) (*models.User, error)
}

// Service is the authentication domain service.
type Service struct {
	users    CredentialStore
	sessions SessionStore
	logger   *logrus.Logger
}

func NewService(users CredentialStore, sessions SessionStore, logger *logrus.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates a new user. The store assigns a fresh globally unique
// external id. A uniqueness conflict at the store (a register race slipping
// past the exists check) surfaces as ErrUserAlreadyExists, not a crash.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	exists, err := s.users.Exists(ctx, username, email)
	if err != nil {
		s.logger.WithError(err).Error("checking user existence")
		return nil, fmt.Errorf("%w: user lookup failed", ErrInternal)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	user, err := s.users.CreateUser(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		s.logger.WithError(err).Error("creating user")
		return nil, fmt.Errorf("%w: user creation failed", ErrInternal)
	}

	s.logger.WithFields(logrus.Fields{
		"username":    user.Username,
		"external_id": user.ExternalID,
	}).Info("user registered")

	return user, nil
}

// Login verifies credentials and opens a new session with a fixed expiry
// window from now. Unknown username and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := s.users.Verify(ctx, username, password)
	if err != nil {
		s.logger.WithError(err).Error("verifying credentials")
		return nil, fmt.Errorf("%w: credential verification failed", ErrInternal)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.logger.WithError(err).Error("creating session")
		return nil, fmt.Errorf("%w: session creation failed", ErrInternal)
	}

	s.logger.WithField("external_id", user.ExternalID).Info("user logged in")

	return session, nil
}

// Logout invalidates the session for the given token. A token that matches
// no active session (already logged out, expired away, or never issued) is
// an error, not a no-op, so a second logout is observable.
func (s *Service) Logout(ctx context.Context, token string) error {
	ok, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		s.logger.WithError(err).Error("invalidating session")
		return fmt.Errorf("%w: session invalidation failed", ErrInternal)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Introspect resolves a bearer token to its user. A session past its
// deadline is deactivated here as a side effect before the error is
// returned; there is no background sweep.
func (s *Service) Introspect(ctx context.Context, token string) (*models.User, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.logger.WithError(err).Error("looking up session")
		return nil, fmt.Errorf("%w: session lookup failed", ErrInternal)
	}
	if session == nil || !session.IsActive {
		return nil, ErrInvalidSession
	}

	if session.Expired(time.Now()) {
		if _, err := s.sessions.Invalidate(ctx, token); err != nil {
			s.logger.WithError(err).Warn("deactivating expired session")
		}
		return nil, ErrInvalidSession
	}

	user, err := s.sessions.GetOwner(ctx, token)
	if err != nil {
		s.logger.WithError(err).Error("resolving session owner")
		return nil, fmt.Errorf("%w: session owner lookup failed", ErrInternal)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}

	return user, nil
}
