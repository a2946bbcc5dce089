package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository manages local accounts and their Last.fm session keys.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account with a bcrypt password hash and the session
// key obtained during signup.
func (r *UserRepository) Create(name, password, sessionKey string, admin bool) (*models.User, error) {
	exists, err := r.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserExists, name)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := shared.GenerateID()
	now := time.Now()

	query := `
		INSERT INTO users (id, user_name, password_hash, session_key, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, id, name, string(hash), sessionKey, admin, now, now); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &models.User{ID: id, Name: name, Admin: admin}, nil
}

// Exists reports whether an account with the given name is registered.
func (r *UserRepository) Exists(name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE user_name = ?)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Authenticate verifies a name/password pair and returns the account.
//
// An unknown name and a wrong password both come back as
// [shared.ErrAuthFailed]; callers cannot distinguish the two.
func (r *UserRepository) Authenticate(name, password string) (*models.User, error) {
	var (
		id    string
		hash  string
		admin bool
	)

	err := r.db.QueryRow("SELECT id, password_hash, is_admin FROM users WHERE user_name = ?", name).
		Scan(&id, &hash, &admin)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: unknown user or wrong password", shared.ErrAuthFailed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: unknown user or wrong password", shared.ErrAuthFailed)
	}

	return &models.User{ID: id, Name: name, Admin: admin}, nil
}

// UpdateSessionKey replaces the stored Last.fm session key for an account.
func (r *UserRepository) UpdateSessionKey(name, sessionKey string) error {
	result, err := r.db.Exec(
		"UPDATE users SET session_key = ?, updated_at = CURRENT_TIMESTAMP WHERE user_name = ?",
		sessionKey, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update session key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, name)
	}

	return nil
}

// SessionKey reads the stored Last.fm session key for an account.
func (r *UserRepository) SessionKey(name string) (string, error) {
	var key string
	err := r.db.QueryRow("SELECT session_key FROM users WHERE user_name = ?", name).Scan(&key)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", shared.ErrUserNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session key: %w", err)
	}
	return key, nil
}
