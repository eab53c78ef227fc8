package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/accounting-notes/backend/internal/services/notes/storage"
)

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user storage.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("user id", user.ID)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(user.Username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if user.Hash == "" {
		return fmt.Errorf("password hash is required")
	}
	role := user.Role
	if role == "" {
		role = storage.RoleUser
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, role, hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		username,
		string(role),
		user.Hash,
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByUsername returns one user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, fmt.Errorf("username is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, role, hash, created_at FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row, "get user by username")
}

// GetAdmin returns the earliest user holding the admin role.
func (s *Store) GetAdmin(ctx context.Context) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, role, hash, created_at FROM users
		 WHERE role = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
		string(storage.RoleAdmin),
	)
	return scanUser(row, "get admin")
}

func scanUser(row rowScanner, op string) (storage.User, error) {
	var (
		user      storage.User
		role      string
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &role, &user.Hash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user.Role = storage.Role(role)
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}
