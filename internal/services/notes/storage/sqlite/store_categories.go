package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/accounting-notes/backend/internal/services/notes/storage"
)

// CreateCategory inserts a category.
func (s *Store) CreateCategory(ctx context.Context, category storage.Category) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("category id", category.ID)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(category.Name)
	if name == "" {
		return fmt.Errorf("category name is required")
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		id,
		name,
		toMillis(category.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory returns one category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (storage.Category, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Category{}, err
	}
	id, err := requireID("category id", id)
	if err != nil {
		return storage.Category{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	return scanCategory(row, "get category")
}

// GetCategoryByName returns one category by its unique name.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (storage.Category, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Category{}, fmt.Errorf("category name is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE name = ?`, name)
	return scanCategory(row, "get category by name")
}

// ListCategories returns every category with its topic summaries.
func (s *Store) ListCategories(ctx context.Context) ([]storage.CategoryWithTopics, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT c.id, c.name, c.created_at, t.id, t.title
		 FROM categories c
		 LEFT JOIN topics t ON t.category_id = c.id
		 ORDER BY c.created_at ASC, c.id ASC, t.created_at ASC, t.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]storage.CategoryWithTopics, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			category   storage.Category
			createdAt  int64
			topicID    sql.NullString
			topicTitle sql.NullString
		)
		if err := rows.Scan(&category.ID, &category.Name, &createdAt, &topicID, &topicTitle); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		position, ok := index[category.ID]
		if !ok {
			category.CreatedAt = fromMillis(createdAt)
			categories = append(categories, storage.CategoryWithTopics{
				Category: category,
				Topics:   []storage.TopicSummary{},
			})
			position = len(categories) - 1
			index[category.ID] = position
		}
		if topicID.Valid {
			categories[position].Topics = append(categories[position].Topics, storage.TopicSummary{
				ID:    topicID.String,
				Title: topicTitle.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// UpdateCategoryName renames a category.
func (s *Store) UpdateCategoryName(ctx context.Context, id string, name string) (storage.Category, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Category{}, err
	}
	id, err := requireID("category id", id)
	if err != nil {
		return storage.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Category{}, fmt.Errorf("category name is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Category{}, storage.ErrAlreadyExists
		}
		return storage.Category{}, fmt.Errorf("update category name: %w", err)
	}
	if err := checkAffected(result, "update category name"); err != nil {
		return storage.Category{}, err
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category and its topics in one transaction.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("category id", id)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("delete category topics: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := checkAffected(result, "delete category"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}
	return nil
}

func scanCategory(row *sql.Row, op string) (storage.Category, error) {
	var category storage.Category
	var createdAt int64
	if err := row.Scan(&category.ID, &category.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Category{}, storage.ErrNotFound
		}
		return storage.Category{}, fmt.Errorf("%s: %w", op, err)
	}
	category.CreatedAt = fromMillis(createdAt)
	return category, nil
}
