// Package storage defines persistence contracts for the notes service:
// categories, their topics (notes with optional narration), and users.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a unique field is already taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Role names the access level of a user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Category groups topics under a unique name.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// TopicSummary is the listing projection of a topic.
type TopicSummary struct {
	ID    string
	Title string
}

// CategoryWithTopics is a category with its topics ordered by creation time.
type CategoryWithTopics struct {
	Category
	Topics []TopicSummary
}

// Topic is a titled note inside a category.
//
// Content is nil until notes are first written. AudioURL is nil when no
// narration was ever published and empty once a narration was withdrawn.
type Topic struct {
	ID         string
	CategoryID string
	Title      string
	Content    *string
	AudioURL   *string
	CreatedAt  time.Time
}

// HasAudio reports whether the topic references a published narration.
func (t Topic) HasAudio() bool {
	return t.AudioURL != nil && *t.AudioURL != ""
}

// User is an account able to sign in.
type User struct {
	ID        string
	Username  string
	Role      Role
	Hash      string
	CreatedAt time.Time
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category Category) error
	GetCategory(ctx context.Context, id string) (Category, error)
	GetCategoryByName(ctx context.Context, name string) (Category, error)
	ListCategories(ctx context.Context) ([]CategoryWithTopics, error)
	UpdateCategoryName(ctx context.Context, id string, name string) (Category, error)
	// DeleteCategory removes the category and every topic in it.
	DeleteCategory(ctx context.Context, id string) error
}

// TopicStore persists topics and their note fields.
type TopicStore interface {
	CreateTopic(ctx context.Context, topic Topic) error
	GetTopic(ctx context.Context, categoryID string, id string) (Topic, error)
	GetTopicByID(ctx context.Context, id string) (Topic, error)
	GetTopicByTitle(ctx context.Context, categoryID string, title string) (Topic, error)
	// ListTopics returns summaries ordered by creation time. A non-empty
	// titleFilter keeps titles containing it, ignoring case.
	ListTopics(ctx context.Context, categoryID string, titleFilter string) ([]TopicSummary, error)
	// AdjacentTopics returns the latest topic created strictly before and
	// the earliest created strictly after createdAt. Missing sides are nil.
	AdjacentTopics(ctx context.Context, categoryID string, createdAt time.Time) (previous *Topic, next *Topic, err error)
	UpdateTopicTitle(ctx context.Context, id string, title string) (Topic, error)
	UpdateTopicContent(ctx context.Context, id string, content *string) error
	UpdateTopicAudio(ctx context.Context, id string, audioURL *string) error
	DeleteTopic(ctx context.Context, id string) error
	// ListTopicAudio returns ids of topics in the category with a published narration.
	ListTopicAudio(ctx context.Context, categoryID string) ([]string, error)
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByUsername(ctx context.Context, username string) (User, error)
	// GetAdmin returns the first user with the admin role.
	GetAdmin(ctx context.Context) (User, error)
}

// Store is the full notes persistence boundary.
type Store interface {
	CategoryStore
	TopicStore
	UserStore
	Close() error
}
