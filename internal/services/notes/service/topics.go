package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/accounting-notes/backend/internal/platform/errors"
	"github.com/accounting-notes/backend/internal/platform/id"
	"github.com/accounting-notes/backend/internal/services/notes/narration"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
)

// NotesUpdater runs the notes update pipeline.
type NotesUpdater interface {
	UpdateNotes(ctx context.Context, categoryID, topicID string, content *string) (narration.Result, error)
	AudioDiscarder
}

// TopicView is a topic with its neighbours in creation order.
type TopicView struct {
	Current  storage.Topic
	Previous *storage.Topic
	Next     *storage.Topic
}

// Topics manages topics inside categories.
type Topics struct {
	store storage.Store
	notes NotesUpdater
	clock func() time.Time
	newID func() (string, error)
}

// NewTopics creates a topic service.
func NewTopics(store storage.Store, notes NotesUpdater) *Topics {
	return &Topics{
		store: store,
		notes: notes,
		clock: time.Now,
		newID: id.NewID,
	}
}

// List returns topic summaries of a category, optionally filtered by title.
func (s *Topics) List(ctx context.Context, categoryID string, title string) ([]storage.TopicSummary, error) {
	category, err := verifyCategory(ctx, s.store, categoryID)
	if err != nil {
		return nil, err
	}
	topics, err := s.store.ListTopics(ctx, category.ID, title)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// Get returns a topic with the topics created just before and after it.
func (s *Topics) Get(ctx context.Context, categoryID string, topicID string) (TopicView, error) {
	topic, err := s.verifyTopic(ctx, categoryID, topicID)
	if err != nil {
		return TopicView{}, err
	}
	previous, next, err := s.store.AdjacentTopics(ctx, topic.CategoryID, topic.CreatedAt)
	if err != nil {
		return TopicView{}, fmt.Errorf("adjacent topics: %w", err)
	}
	return TopicView{Current: topic, Previous: previous, Next: next}, nil
}

// Create adds a topic with a title unique inside its category.
func (s *Topics) Create(ctx context.Context, categoryID string, title string) (storage.Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Topic{}, apperrors.New(apperrors.CodeTopicTitleEmpty, "topic title is required")
	}
	category, err := verifyCategory(ctx, s.store, categoryID)
	if err != nil {
		return storage.Topic{}, err
	}
	if err := s.verifyUniqueTitle(ctx, category.ID, title); err != nil {
		return storage.Topic{}, err
	}

	topicID, err := s.newID()
	if err != nil {
		return storage.Topic{}, fmt.Errorf("generate topic id: %w", err)
	}
	now := s.clock().UTC()
	topic := storage.Topic{ID: topicID, CategoryID: category.ID, Title: title, CreatedAt: now}
	if err := s.store.CreateTopic(ctx, topic); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.Topic{}, topicTitleTaken(title)
		}
		return storage.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

// Rename changes a topic title.
func (s *Topics) Rename(ctx context.Context, categoryID string, topicID string, title string) (storage.Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Topic{}, apperrors.New(apperrors.CodeTopicTitleEmpty, "topic title is required")
	}
	topic, err := s.verifyTopic(ctx, categoryID, topicID)
	if err != nil {
		return storage.Topic{}, err
	}
	if err := s.verifyUniqueTitle(ctx, topic.CategoryID, title); err != nil {
		return storage.Topic{}, err
	}

	renamed, err := s.store.UpdateTopicTitle(ctx, topic.ID, title)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return storage.Topic{}, topicTitleTaken(title)
		case errors.Is(err, storage.ErrNotFound):
			return storage.Topic{}, topicNotFound()
		}
		return storage.Topic{}, fmt.Errorf("rename topic: %w", err)
	}
	return renamed, nil
}

// Delete removes a topic and its narration.
func (s *Topics) Delete(ctx context.Context, categoryID string, topicID string) (storage.Topic, error) {
	topic, err := s.verifyTopic(ctx, categoryID, topicID)
	if err != nil {
		return storage.Topic{}, err
	}
	if err := s.store.DeleteTopic(ctx, topic.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Topic{}, topicNotFound()
		}
		return storage.Topic{}, fmt.Errorf("delete topic: %w", err)
	}
	if topic.HasAudio() && s.notes != nil {
		s.notes.DiscardAudio(ctx, topic.ID)
	}
	return topic, nil
}

// Notes returns the raw notes of a topic.
func (s *Topics) Notes(ctx context.Context, categoryID string, topicID string) (*string, error) {
	topic, err := s.verifyTopic(ctx, categoryID, topicID)
	if err != nil {
		return nil, err
	}
	return topic.Content, nil
}

// UpdateNotes replaces the notes of a topic and refreshes its narration.
func (s *Topics) UpdateNotes(ctx context.Context, categoryID string, topicID string, content *string) (narration.Result, error) {
	if s.notes == nil {
		return narration.Result{}, errors.New("notes pipeline is not configured")
	}
	return s.notes.UpdateNotes(ctx, strings.TrimSpace(categoryID), strings.TrimSpace(topicID), content)
}

func (s *Topics) verifyTopic(ctx context.Context, categoryID string, topicID string) (storage.Topic, error) {
	category, err := verifyCategory(ctx, s.store, categoryID)
	if err != nil {
		return storage.Topic{}, err
	}
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return storage.Topic{}, topicNotFound()
	}
	topic, err := s.store.GetTopic(ctx, category.ID, topicID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Topic{}, topicNotFound()
		}
		return storage.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

func (s *Topics) verifyUniqueTitle(ctx context.Context, categoryID string, title string) error {
	_, err := s.store.GetTopicByTitle(ctx, categoryID, title)
	switch {
	case err == nil:
		return topicTitleTaken(title)
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check topic title: %w", err)
	}
}

func topicNotFound() error {
	return apperrors.New(apperrors.CodeTopicNotFound, "topic not found")
}

func topicTitleTaken(title string) error {
	return apperrors.WithMetadata(apperrors.CodeTopicTitleTaken, "topic title already exists", map[string]string{"title": title})
}
