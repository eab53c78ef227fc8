package http

import (
	"time"

	"github.com/accounting-notes/backend/internal/services/notes/narration"
	"github.com/accounting-notes/backend/internal/services/notes/service"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
)

type categoryView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type topicSummaryView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type categoryWithTopicsView struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Topics []topicSummaryView `json:"topics"`
}

type topicView struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"categoryId"`
	Title      string    `json:"title"`
	Content    *string   `json:"content"`
	AudioURL   *string   `json:"audioUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

type neighbourView struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content *string `json:"content"`
}

// topicDetailView keeps the "behavior" key for the previous topic because
// deployed clients read it.
type topicDetailView struct {
	Current  topicView      `json:"current"`
	Previous *neighbourView `json:"behavior"`
	Next     *neighbourView `json:"next"`
}

type notesView struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  *string `json:"content"`
	AudioURL *string `json:"audioUrl"`
}

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newCategoryView(category storage.Category) categoryView {
	return categoryView{ID: category.ID, Name: category.Name, CreatedAt: category.CreatedAt}
}

func newTopicSummaryViews(summaries []storage.TopicSummary) []topicSummaryView {
	views := make([]topicSummaryView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, topicSummaryView{ID: summary.ID, Title: summary.Title})
	}
	return views
}

func newCategoryWithTopicsViews(categories []storage.CategoryWithTopics) []categoryWithTopicsView {
	views := make([]categoryWithTopicsView, 0, len(categories))
	for _, category := range categories {
		views = append(views, categoryWithTopicsView{
			ID:     category.ID,
			Name:   category.Name,
			Topics: newTopicSummaryViews(category.Topics),
		})
	}
	return views
}

func newTopicView(topic storage.Topic) topicView {
	return topicView{
		ID:         topic.ID,
		CategoryID: topic.CategoryID,
		Title:      topic.Title,
		Content:    topic.Content,
		AudioURL:   topic.AudioURL,
		CreatedAt:  topic.CreatedAt,
	}
}

func newNeighbourView(topic *storage.Topic) *neighbourView {
	if topic == nil {
		return nil
	}
	return &neighbourView{ID: topic.ID, Title: topic.Title, Content: topic.Content}
}

func newTopicDetailView(view service.TopicView) topicDetailView {
	return topicDetailView{
		Current:  newTopicView(view.Current),
		Previous: newNeighbourView(view.Previous),
		Next:     newNeighbourView(view.Next),
	}
}

func newNotesView(result narration.Result) notesView {
	return notesView{ID: result.ID, Title: result.Title, Content: result.Content, AudioURL: result.AudioURL}
}

func newUserView(user storage.User) userView {
	return userView{ID: user.ID, Username: user.Username, Role: string(user.Role), CreatedAt: user.CreatedAt}
}
