package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/accounting-notes/backend/internal/services/notes/storage"
	"golang.org/x/text/cases"
)

const topicColumns = `id, category_id, title, content, audio_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTopic inserts a topic with empty notes and no narration.
func (s *Store) CreateTopic(ctx context.Context, topic storage.Topic) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("topic id", topic.ID)
	if err != nil {
		return err
	}
	categoryID, err := requireID("category id", topic.CategoryID)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(topic.Title)
	if title == "" {
		return fmt.Errorf("topic title is required")
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO topics (id, category_id, title, content, audio_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		categoryID,
		title,
		nullString(topic.Content),
		nullString(topic.AudioURL),
		toMillis(topic.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// GetTopic returns one topic scoped to its category.
func (s *Store) GetTopic(ctx context.Context, categoryID string, id string) (storage.Topic, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Topic{}, err
	}
	categoryID, err := requireID("category id", categoryID)
	if err != nil {
		return storage.Topic{}, err
	}
	id, err = requireID("topic id", id)
	if err != nil {
		return storage.Topic{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+topicColumns+` FROM topics WHERE category_id = ? AND id = ?`,
		categoryID,
		id,
	)
	return scanTopicRow(row, "get topic")
}

// GetTopicByID returns one topic regardless of category.
func (s *Store) GetTopicByID(ctx context.Context, id string) (storage.Topic, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Topic{}, err
	}
	id, err := requireID("topic id", id)
	if err != nil {
		return storage.Topic{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)
	return scanTopicRow(row, "get topic by id")
}

// GetTopicByTitle returns the topic with an exact title inside a category.
func (s *Store) GetTopicByTitle(ctx context.Context, categoryID string, title string) (storage.Topic, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Topic{}, err
	}
	categoryID, err := requireID("category id", categoryID)
	if err != nil {
		return storage.Topic{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Topic{}, fmt.Errorf("topic title is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+topicColumns+` FROM topics WHERE category_id = ? AND title = ?`,
		categoryID,
		title,
	)
	return scanTopicRow(row, "get topic by title")
}

// ListTopics returns topic summaries in creation order.
//
// SQLite LOWER only folds ASCII, so the title filter is applied here with
// Unicode case folding.
func (s *Store) ListTopics(ctx context.Context, categoryID string, titleFilter string) ([]storage.TopicSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	categoryID, err := requireID("category id", categoryID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title FROM topics WHERE category_id = ? ORDER BY created_at ASC, id ASC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var needle string
	fold := cases.Fold()
	if strings.TrimSpace(titleFilter) != "" {
		needle = fold.String(titleFilter)
	}

	topics := make([]storage.TopicSummary, 0)
	for rows.Next() {
		var topic storage.TopicSummary
		if err := rows.Scan(&topic.ID, &topic.Title); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if needle != "" && !strings.Contains(fold.String(topic.Title), needle) {
			continue
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// AdjacentTopics returns the neighbours of createdAt inside a category.
func (s *Store) AdjacentTopics(ctx context.Context, categoryID string, createdAt time.Time) (*storage.Topic, *storage.Topic, error) {
	if err := s.ready(ctx); err != nil {
		return nil, nil, err
	}
	categoryID, err := requireID("category id", categoryID)
	if err != nil {
		return nil, nil, err
	}
	at := toMillis(createdAt)

	previous, err := s.optionalTopic(ctx,
		`SELECT `+topicColumns+` FROM topics
		 WHERE category_id = ? AND created_at < ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		categoryID, at,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("previous topic: %w", err)
	}
	next, err := s.optionalTopic(ctx,
		`SELECT `+topicColumns+` FROM topics
		 WHERE category_id = ? AND created_at > ?
		 ORDER BY created_at ASC, id ASC LIMIT 1`,
		categoryID, at,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("next topic: %w", err)
	}
	return previous, next, nil
}

// UpdateTopicTitle renames a topic.
func (s *Store) UpdateTopicTitle(ctx context.Context, id string, title string) (storage.Topic, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Topic{}, err
	}
	id, err := requireID("topic id", id)
	if err != nil {
		return storage.Topic{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Topic{}, fmt.Errorf("topic title is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `UPDATE topics SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Topic{}, storage.ErrAlreadyExists
		}
		return storage.Topic{}, fmt.Errorf("update topic title: %w", err)
	}
	if err := checkAffected(result, "update topic title"); err != nil {
		return storage.Topic{}, err
	}
	return s.GetTopicByID(ctx, id)
}

// UpdateTopicContent writes the raw note text. Nil clears it.
func (s *Store) UpdateTopicContent(ctx context.Context, id string, content *string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("topic id", id)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE topics SET content = ? WHERE id = ?`, nullString(content), id)
	if err != nil {
		return fmt.Errorf("update topic content: %w", err)
	}
	return checkAffected(result, "update topic content")
}

// UpdateTopicAudio writes the narration reference.
func (s *Store) UpdateTopicAudio(ctx context.Context, id string, audioURL *string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("topic id", id)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE topics SET audio_url = ? WHERE id = ?`, nullString(audioURL), id)
	if err != nil {
		return fmt.Errorf("update topic audio: %w", err)
	}
	return checkAffected(result, "update topic audio")
}

// DeleteTopic removes a topic.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("topic id", id)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return checkAffected(result, "delete topic")
}

// ListTopicAudio returns ids of topics with a non-empty narration reference.
func (s *Store) ListTopicAudio(ctx context.Context, categoryID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	categoryID, err := requireID("category id", categoryID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id FROM topics
		 WHERE category_id = ? AND audio_url IS NOT NULL AND audio_url <> ''
		 ORDER BY created_at ASC, id ASC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topic audio: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan topic audio: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topic audio: %w", err)
	}
	return ids, nil
}

func (s *Store) optionalTopic(ctx context.Context, query string, args ...any) (*storage.Topic, error) {
	topic, err := scanTopicRow(s.sqlDB.QueryRowContext(ctx, query, args...), "query topic")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

func scanTopicRow(row rowScanner, op string) (storage.Topic, error) {
	var (
		topic     storage.Topic
		content   sql.NullString
		audioURL  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&topic.ID, &topic.CategoryID, &topic.Title, &content, &audioURL, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Topic{}, storage.ErrNotFound
		}
		return storage.Topic{}, fmt.Errorf("%s: %w", op, err)
	}
	topic.Content = stringPtr(content)
	topic.AudioURL = stringPtr(audioURL)
	topic.CreatedAt = fromMillis(createdAt)
	return topic, nil
}
