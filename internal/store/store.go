package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookstore-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store wraps the database handle. It is constructed once by the
// process entry point and injected into every service; no package
// global hides the connection.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to the database
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateUser inserts a new account with zero balance
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (user_id, password_hash, balance, token, terminal, token_issued_at)
		VALUES ($1, $2, 0, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		u.UserID, u.PasswordHash, u.Token, u.Terminal, u.TokenIssued)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrExistUser(u.UserID)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNonExistUser(userID)
	}
	if err != nil {
		return nil, models.ErrStorage(err)
	}
	return &u, nil
}

// UserExists reports whether a user id is registered
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)", userID)
	if err != nil {
		return false, models.ErrStorage(err)
	}
	return exists, nil
}

// UpdateUserToken stores a freshly issued token and terminal tag
func (s *Store) UpdateUserToken(ctx context.Context, userID, token, terminal string, issued time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET token = $1, terminal = $2, token_issued_at = $3 WHERE user_id = $4",
		token, terminal, issued, userID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistUser(userID)
	}
	return nil
}

// UpdateUserPassword replaces the credential and rotates the token
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash, token, terminal string, issued time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, token = $2, terminal = $3, token_issued_at = $4
		 WHERE user_id = $5`,
		passwordHash, token, terminal, issued, userID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistUser(userID)
	}
	return nil
}

// DeleteUser removes an account; per-user secret material cascades
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = $1", userID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistUser(userID)
	}
	return nil
}

// AddBalance unconditionally credits a user's balance
func (s *Store) AddBalance(ctx context.Context, userID string, amount int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET balance = balance + $1 WHERE user_id = $2", amount, userID)
	if err != nil {
		return models.ErrStorage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNonExistUser(userID)
	}
	return nil
}
