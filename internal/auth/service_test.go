package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/internal/models"
)

// ========================================
// Fakes
// ========================================

type fakeCredentialStore struct {
	users     map[string]*models.User // by username
	passwords map[string]string
	nextID    int64

	createErr error
	existsErr error
	verifyErr error
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{
		users:     make(map[string]*models.User),
		passwords: make(map[string]string),
	}
}

func (f *fakeCredentialStore) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.users[username]; ok {
		return nil, ErrUserAlreadyExists
	}
	f.nextID++
	user := &models.User{
		ID:         f.nextID,
		ExternalID: f.nextID * 1000,
		Username:   username,
		Email:      email,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.users[username] = user
	f.passwords[username] = password
	return user, nil
}

func (f *fakeCredentialStore) Exists(ctx context.Context, username, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCredentialStore) Verify(ctx context.Context, username, password string) (*models.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	user, ok := f.users[username]
	if !ok || f.passwords[username] != password {
		return nil, nil
	}
	return user, nil
}

type fakeSessionStore struct {
	sessions map[string]*models.Session
	owners   map[string]*models.User
	tokenSeq int

	invalidated []string

	createErr error
	getErr    error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*models.Session),
		owners:   make(map[string]*models.User),
	}
}

func (f *fakeSessionStore) Create(ctx context.Context, userID int64) (*models.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	f.tokenSeq++
	now := time.Now()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
		IsActive:  true,
	}
	f.sessions[token] = session
	return session, nil
}

func (f *fakeSessionStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sessions[token], nil
}

func (f *fakeSessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	session, ok := f.sessions[token]
	if !ok || !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	f.invalidated = append(f.invalidated, token)
	return true, nil
}

func (f *fakeSessionStore) GetOwner(ctx context.Context, token string) (*models.User, error) {
	session, ok := f.sessions[token]
	if !ok || !session.IsActive {
		return nil, nil
	}
	return f.owners[token], nil
}

func newTestService(users *fakeCredentialStore, sessions *fakeSessionStore) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(users, sessions, logger)
}

// ========================================
// Register
// ========================================

func TestRegister_Success(t *testing.T) {
	users := newFakeCredentialStore()
	s := newTestService(users, newFakeSessionStore())

	user, err := s.Register(context.Background(), "alice", "alice@x.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Greater(t, user.ExternalID, int64(0))
}

func TestRegister_ExternalIDsUnique(t *testing.T) {
	users := newFakeCredentialStore()
	s := newTestService(users, newFakeSessionStore())

	seen := make(map[int64]bool)
	for _, name := range []string{"a1", "a2", "a3"} {
		user, err := s.Register(context.Background(), name, name+"@x.test", "pw")
		require.NoError(t, err)
		assert.False(t, seen[user.ExternalID], "external id reused")
		seen[user.ExternalID] = true
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	users := newFakeCredentialStore()
	s := newTestService(users, newFakeSessionStore())

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "alice", "other@x.test", "pw")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newFakeCredentialStore()
	s := newTestService(users, newFakeSessionStore())

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "bob", "alice@x.test", "pw")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_StoreConflictSurfacesAsAlreadyExists(t *testing.T) {
	// A race slipping past the exists check comes back from the store as a
	// uniqueness conflict and must map to the same error.
	users := newFakeCredentialStore()
	users.createErr = ErrUserAlreadyExists
	s := newTestService(users, newFakeSessionStore())

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	users := newFakeCredentialStore()
	users.existsErr = errors.New("connection refused")
	s := newTestService(users, newFakeSessionStore())

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "connection refused")
}

// ========================================
// Login
// ========================================

func TestLogin_Success(t *testing.T) {
	users := newFakeCredentialStore()
	sessions := newFakeSessionStore()
	s := newTestService(users, sessions)

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "secret1")
	require.NoError(t, err)

	before := time.Now()
	session, err := s.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	assert.Len(t, session.Token, 64)
	assert.True(t, session.IsActive)
	assert.WithinDuration(t, before.Add(SessionTTL), session.ExpiresAt, 5*time.Second)
}

func TestLogin_WrongPasswordAndUnknownUserIndistinguishable(t *testing.T) {
	users := newFakeCredentialStore()
	s := newTestService(users, newFakeSessionStore())

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "secret1")
	require.NoError(t, err)

	_, errWrongPw := s.Login(context.Background(), "alice", "wrongpw")
	_, errUnknown := s.Login(context.Background(), "nobody", "secret1")

	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrongPw.Error(), errUnknown.Error())
}

// ========================================
// Logout
// ========================================

func TestLogout_SecondCallFails(t *testing.T) {
	users := newFakeCredentialStore()
	sessions := newFakeSessionStore()
	s := newTestService(users, sessions)

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)
	session, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background(), session.Token))

	err = s.Logout(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLogout_UnknownToken(t *testing.T) {
	s := newTestService(newFakeCredentialStore(), newFakeSessionStore())

	err := s.Logout(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ========================================
// Introspect
// ========================================

func TestIntrospect_Success(t *testing.T) {
	users := newFakeCredentialStore()
	sessions := newFakeSessionStore()
	s := newTestService(users, sessions)

	registered, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)
	session, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	sessions.owners[session.Token] = registered

	user, err := s.Introspect(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ExternalID, user.ExternalID)
}

func TestIntrospect_UnknownToken(t *testing.T) {
	s := newTestService(newFakeCredentialStore(), newFakeSessionStore())

	_, err := s.Introspect(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestIntrospect_LoggedOutSession(t *testing.T) {
	users := newFakeCredentialStore()
	sessions := newFakeSessionStore()
	s := newTestService(users, sessions)

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)
	session, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, s.Logout(context.Background(), session.Token))

	_, err = s.Introspect(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestIntrospect_ExpiredSessionIsDeactivated(t *testing.T) {
	users := newFakeCredentialStore()
	sessions := newFakeSessionStore()
	s := newTestService(users, sessions)

	_, err := s.Register(context.Background(), "alice", "alice@x.test", "pw")
	require.NoError(t, err)
	session, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	// Push the deadline one second into the past.
	sessions.sessions[session.Token].ExpiresAt = time.Now().Add(-time.Second)

	_, err = s.Introspect(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Contains(t, sessions.invalidated, session.Token, "expired session must be deactivated as a side effect")

	// The side effect is observable: logout now finds nothing.
	err = s.Logout(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestIntrospect_StoreFailureIsInternal(t *testing.T) {
	sessions := newFakeSessionStore()
	sessions.getErr = errors.New("redis down")
	s := newTestService(newFakeCredentialStore(), sessions)

	_, err := s.Introspect(context.Background(), "some-token")
	assert.ErrorIs(t, err, ErrInternal)
}
