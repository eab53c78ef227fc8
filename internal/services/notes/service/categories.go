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
)

// AudioDiscarder removes narrations of deleted topics.
type AudioDiscarder interface {
	DiscardAudio(ctx context.Context, topicIDs ...string)
}

// Categories manages categories.
type Categories struct {
	store storage.Store
	audio AudioDiscarder
	clock func() time.Time
	newID func() (string, error)
}

// NewCategories creates a category service.
func NewCategories(store storage.Store, audio AudioDiscarder) *Categories {
	return &Categories{
		store: store,
		audio: audio,
		clock: time.Now,
		newID: id.NewID,
	}
}

// List returns every category with its topic summaries.
func (s *Categories) List(ctx context.Context) ([]storage.CategoryWithTopics, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Get returns one category.
func (s *Categories) Get(ctx context.Context, categoryID string) (storage.Category, error) {
	return verifyCategory(ctx, s.store, categoryID)
}

// Create adds a category with a unique name.
func (s *Categories) Create(ctx context.Context, name string) (storage.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Category{}, apperrors.New(apperrors.CodeCategoryNameEmpty, "category name is required")
	}
	if err := s.verifyUniqueName(ctx, name); err != nil {
		return storage.Category{}, err
	}

	categoryID, err := s.newID()
	if err != nil {
		return storage.Category{}, fmt.Errorf("generate category id: %w", err)
	}
	now := s.clock().UTC()
	category := storage.Category{ID: categoryID, Name: name, CreatedAt: now}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.Category{}, categoryNameTaken(name)
		}
		return storage.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// Rename changes a category name. The new name must not be in use,
// including by the category itself.
func (s *Categories) Rename(ctx context.Context, categoryID string, name string) (storage.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Category{}, apperrors.New(apperrors.CodeCategoryNameEmpty, "category name is required")
	}
	if _, err := verifyCategory(ctx, s.store, categoryID); err != nil {
		return storage.Category{}, err
	}
	if err := s.verifyUniqueName(ctx, name); err != nil {
		return storage.Category{}, err
	}

	category, err := s.store.UpdateCategoryName(ctx, categoryID, name)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return storage.Category{}, categoryNameTaken(name)
		case errors.Is(err, storage.ErrNotFound):
			return storage.Category{}, categoryNotFound()
		}
		return storage.Category{}, fmt.Errorf("rename category: %w", err)
	}
	return category, nil
}

// Delete removes a category, its topics and their narrations.
func (s *Categories) Delete(ctx context.Context, categoryID string) (storage.Category, error) {
	category, err := verifyCategory(ctx, s.store, categoryID)
	if err != nil {
		return storage.Category{}, err
	}
	narrated, err := s.store.ListTopicAudio(ctx, category.ID)
	if err != nil {
		return storage.Category{}, fmt.Errorf("list narrated topics: %w", err)
	}
	if err := s.store.DeleteCategory(ctx, category.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Category{}, categoryNotFound()
		}
		return storage.Category{}, fmt.Errorf("delete category: %w", err)
	}
	if s.audio != nil && len(narrated) > 0 {
		s.audio.DiscardAudio(ctx, narrated...)
	}
	return category, nil
}

func (s *Categories) verifyUniqueName(ctx context.Context, name string) error {
	_, err := s.store.GetCategoryByName(ctx, name)
	switch {
	case err == nil:
		return categoryNameTaken(name)
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check category name: %w", err)
	}
}

func verifyCategory(ctx context.Context, store storage.CategoryStore, categoryID string) (storage.Category, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return storage.Category{}, categoryNotFound()
	}
	category, err := store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Category{}, categoryNotFound()
		}
		return storage.Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func categoryNotFound() error {
	return apperrors.New(apperrors.CodeCategoryNotFound, "category not found")
}

func categoryNameTaken(name string) error {
	return apperrors.WithMetadata(apperrors.CodeCategoryNameTaken, "category name already exists", map[string]string{"name": name})
}
