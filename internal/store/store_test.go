package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/internal/auth"
	"github.com/docvault/internal/models"
)

// newTestDB gives a migrated in-memory SQLite database. A single connection
// keeps the in-memory database alive for the whole test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, "sqlite3"))
	return db
}

// ========================================
// UserStore
// ========================================

func TestUserStore_CreateAndVerify(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "alice@x.test", "secret1")
	require.NoError(t, err)
	assert.Greater(t, user.ExternalID, int64(0))
	assert.NotEqual(t, "secret1", user.PasswordHash, "password must be stored hashed")

	verified, err := users.Verify(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, user.ExternalID, verified.ExternalID)

	wrong, err := users.Verify(ctx, "alice", "wrongpw")
	require.NoError(t, err)
	assert.Nil(t, wrong)

	unknown, err := users.Verify(ctx, "nobody", "secret1")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestUserStore_Exists(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	byName, err := users.Exists(ctx, "alice", "other@x.test")
	require.NoError(t, err)
	assert.True(t, byName)

	byEmail, err := users.Exists(ctx, "other", "alice@x.test")
	require.NoError(t, err)
	assert.True(t, byEmail)

	neither, err := users.Exists(ctx, "bob", "bob@x.test")
	require.NoError(t, err)
	assert.False(t, neither)
}

func TestUserStore_DuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, "alice", "new@x.test", "pw")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)

	_, err = users.CreateUser(ctx, "bob", "alice@x.test", "pw")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestUserStore_GetByID(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	created, err := users.CreateUser(ctx, "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	got, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ExternalID, got.ExternalID)

	missing, err := users.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// ========================================
// SessionStore
// ========================================

func TestSessionStore_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "alice@x.test", "pw")
	require.NoError(t, err)

	session, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, session.Token, 64)
	assert.True(t, session.IsActive)
	assert.WithinDuration(t, session.CreatedAt.Add(auth.SessionTTL), session.ExpiresAt, time.Second)

	got, err := sessions.Get(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.IsActive)

	owner, err := sessions.GetOwner(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, user.ExternalID, owner.ExternalID)
}

func TestSessionStore_InvalidateTwice(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "alice@x.test", "pw")
	require.NoError(t, err)
	session, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	ok, err := sessions.Invalidate(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sessions.Invalidate(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, ok, "second invalidation finds no active session")

	// Inactive sessions have no resolvable owner.
	owner, err := sessions.GetOwner(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestSessionStore_GetMiss(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionStore(db)

	got, err := sessions.Get(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ========================================
// FileStore
// ========================================

func TestFileStore_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	filesStore := NewFileStore(db)
	ctx := context.Background()

	created, err := filesStore.Create(ctx, &models.File{
		FileID:          "11111111-2222-3333-4444-555555555555",
		Name:            "report",
		Description:     "annual",
		AmountOfPages:   10,
		OwnerExternalID: 42,
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))

	got, err := filesStore.GetByID(ctx, created.FileID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "report", got.Name)
	assert.False(t, got.IsUploaded)
	assert.Empty(t, got.StorageKey)

	ok, err := filesStore.SetStorageKey(ctx, created.FileID, "files/abc.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = filesStore.GetByID(ctx, created.FileID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsUploaded)
	assert.Equal(t, "files/abc.pdf", got.StorageKey)
	assert.Equal(t, created.FileID, got.FileID)
	assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))

	ok, err = filesStore.Delete(ctx, created.FileID)
	require.NoError(t, err)
	assert.True(t, ok)

	gone, err := filesStore.GetByID(ctx, created.FileID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFileStore_ListByOwner(t *testing.T) {
	db := newTestDB(t)
	filesStore := NewFileStore(db)
	ctx := context.Background()

	for i, id := range []string{"aaa", "bbb", "ccc"} {
		_, err := filesStore.Create(ctx, &models.File{
			FileID:          id,
			Name:            "doc",
			AmountOfPages:   i + 1,
			OwnerExternalID: 42,
		})
		require.NoError(t, err)
	}
	_, err := filesStore.Create(ctx, &models.File{
		FileID:          "ddd",
		Name:            "other",
		AmountOfPages:   1,
		OwnerExternalID: 99,
	})
	require.NoError(t, err)

	list, err := filesStore.ListByOwner(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	empty, err := filesStore.ListByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileStore_MissingRecordOps(t *testing.T) {
	db := newTestDB(t)
	filesStore := NewFileStore(db)
	ctx := context.Background()

	ok, err := filesStore.SetStorageKey(ctx, "missing", "files/x.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = filesStore.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
