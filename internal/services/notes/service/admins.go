package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/accounting-notes/backend/internal/platform/errors"
	"github.com/accounting-notes/backend/internal/platform/id"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
	"golang.org/x/crypto/bcrypt"
)

// AdminUsername is the account created by Register.
const AdminUsername = "admin"

// Admins registers and authenticates the single admin account.
type Admins struct {
	store    storage.UserStore
	password string
	cost     int
	clock    func() time.Time
	newID    func() (string, error)
}

// NewAdmins creates an admin service. password seeds the admin account.
func NewAdmins(store storage.UserStore, password string) *Admins {
	return &Admins{
		store:    store,
		password: password,
		cost:     bcrypt.DefaultCost,
		clock:    time.Now,
		newID:    id.NewID,
	}
}

// Find returns the admin without its password hash, or nil when none exists.
func (s *Admins) Find(ctx context.Context) (*storage.User, error) {
	admin, err := s.store.GetAdmin(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	admin.Hash = ""
	return &admin, nil
}

// Register creates the admin account with the configured password.
func (s *Admins) Register(ctx context.Context) (storage.User, error) {
	if s.password == "" {
		return storage.User{}, apperrors.New(apperrors.CodePasswordEmpty, "admin password is not configured")
	}
	_, err := s.store.GetUserByUsername(ctx, AdminUsername)
	switch {
	case err == nil:
		return storage.User{}, apperrors.New(apperrors.CodeUserExists, "admin already exists")
	case !errors.Is(err, storage.ErrNotFound):
		return storage.User{}, fmt.Errorf("get admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.password), s.cost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash admin password: %w", err)
	}
	userID, err := s.newID()
	if err != nil {
		return storage.User{}, fmt.Errorf("generate user id: %w", err)
	}
	now := s.clock().UTC()
	admin := storage.User{
		ID:        userID,
		Username:  AdminUsername,
		Role:      storage.RoleAdmin,
		Hash:      string(hash),
		CreatedAt: now,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.User{}, apperrors.New(apperrors.CodeUserExists, "admin already exists")
		}
		return storage.User{}, fmt.Errorf("create admin: %w", err)
	}
	admin.Hash = ""
	return admin, nil
}

// Login checks credentials and returns the user without its hash.
func (s *Admins) Login(ctx context.Context, username string, password string) (storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, apperrors.New(apperrors.CodeUsernameEmpty, "username is required")
	}
	if password == "" {
		return storage.User{}, apperrors.New(apperrors.CodePasswordEmpty, "password is required")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.New(apperrors.CodeUserNotFound, "user not found")
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return storage.User{}, apperrors.New(apperrors.CodeInvalidPassword, "invalid password")
		}
		return storage.User{}, fmt.Errorf("compare password: %w", err)
	}
	user.Hash = ""
	return user, nil
}
