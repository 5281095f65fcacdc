package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/docvault/internal/auth"
	"github.com/docvault/internal/models"
)

// externalIDSpace is the range external ids are drawn from (1..1e9).
const externalIDSpace = 1_000_000_000

// externalIDAttempts bounds the collision retry loop. Running out means the
// id space is close to exhausted, which is a capacity bug worth failing on.
const externalIDAttempts = 10

// UserStore is the SQL CredentialStore. Passwords are bcrypt-hashed here;
// the service layer never sees hashes.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new user with a freshly generated unique external id.
// A username or email collision surfaces as auth.ErrUserAlreadyExists.
func (s *UserStore) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < externalIDAttempts; attempt++ {
		externalID, err := randomExternalID()
		if err != nil {
			return nil, err
		}

		user := &models.User{
			ExternalID:   externalID,
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.db.QueryRowContext(ctx,
			`INSERT INTO users (external_id, username, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			user.ExternalID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
		).Scan(&user.ID)
		if err == nil {
			return user, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", err)
		}

		// A unique violation is either a concurrent registration of the
		// same username/email, or an external id collision. Only the
		// latter is retried.
		taken, exErr := s.externalIDTaken(ctx, externalID)
		if exErr != nil {
			return nil, exErr
		}
		if !taken {
			return nil, auth.ErrUserAlreadyExists
		}
	}

	return nil, fmt.Errorf("allocate external id: gave up after %d attempts", externalIDAttempts)
}

// Exists reports whether the username or the email is already registered.
func (s *UserStore) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Verify returns the user when username and password match, (nil, nil)
// otherwise. Unknown users and wrong passwords are not distinguished.
func (s *UserStore) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.getByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

// GetByID resolves a user by internal id, (nil, nil) when absent.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.ExternalID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (s *UserStore) getByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.ExternalID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (s *UserStore) externalIDTaken(ctx context.Context, externalID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE external_id = $1)`,
		externalID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check external id: %w", err)
	}
	return taken, nil
}

func randomExternalID() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(externalIDSpace))
	if err != nil {
		return 0, fmt.Errorf("generate external id: %w", err)
	}
	return n.Int64() + 1, nil
}
