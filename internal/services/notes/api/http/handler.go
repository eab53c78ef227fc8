package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/accounting-notes/backend/internal/services/notes/narration"
	"github.com/accounting-notes/backend/internal/services/notes/service"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
	"go.uber.org/zap"
)

// CategoryService is the category surface used by the handlers.
type CategoryService interface {
	List(ctx context.Context) ([]storage.CategoryWithTopics, error)
	Get(ctx context.Context, categoryID string) (storage.Category, error)
	Create(ctx context.Context, name string) (storage.Category, error)
	Rename(ctx context.Context, categoryID string, name string) (storage.Category, error)
	Delete(ctx context.Context, categoryID string) (storage.Category, error)
}

// TopicService is the topic surface used by the handlers.
type TopicService interface {
	List(ctx context.Context, categoryID string, title string) ([]storage.TopicSummary, error)
	Get(ctx context.Context, categoryID string, topicID string) (service.TopicView, error)
	Create(ctx context.Context, categoryID string, title string) (storage.Topic, error)
	Rename(ctx context.Context, categoryID string, topicID string, title string) (storage.Topic, error)
	Delete(ctx context.Context, categoryID string, topicID string) (storage.Topic, error)
	Notes(ctx context.Context, categoryID string, topicID string) (*string, error)
	UpdateNotes(ctx context.Context, categoryID string, topicID string, content *string) (narration.Result, error)
}

// AdminService is the admin account surface used by the handlers.
type AdminService interface {
	Find(ctx context.Context) (*storage.User, error)
	Register(ctx context.Context) (storage.User, error)
	Login(ctx context.Context, username string, password string) (storage.User, error)
}

// CookiePolicy controls the attributes of the role cookie.
type CookiePolicy struct {
	// Production switches the cookie to SameSite=None; Secure with Domain.
	Production bool
	Domain     string
}

// Config wires the handler dependencies.
type Config struct {
	Categories     CategoryService
	Topics         TopicService
	Admins         AdminService
	Cookie         CookiePolicy
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Handler serves the notes JSON API.
type Handler struct {
	categories CategoryService
	topics     TopicService
	admins     AdminService
	cookie     CookiePolicy
	origins    map[string]struct{}
	logger     *zap.Logger
}

// NewHandler validates cfg and builds a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Categories == nil {
		return nil, errors.New("category service is required")
	}
	if cfg.Topics == nil {
		return nil, errors.New("topic service is required")
	}
	if cfg.Admins == nil {
		return nil, errors.New("admin service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return &Handler{
		categories: cfg.Categories,
		topics:     cfg.Topics,
		admins:     cfg.Admins,
		cookie:     cfg.Cookie,
		origins:    origins,
		logger:     logger,
	}, nil
}

// Routes returns the API routes wrapped in the shared middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("GET /categories/{id}", h.getCategory)
	mux.Handle("POST /categories", h.requireAdmin(h.createCategory))
	mux.Handle("PUT /categories/{id}", h.requireAdmin(h.renameCategory))
	mux.Handle("DELETE /categories/{id}", h.requireAdmin(h.deleteCategory))

	mux.HandleFunc("GET /categories/{categoryId}/topics", h.listTopics)
	mux.Handle("POST /categories/{categoryId}/topics", h.requireAdmin(h.createTopic))
	mux.HandleFunc("GET /categories/{categoryId}/topics/{id}", h.getTopic)
	mux.Handle("PUT /categories/{categoryId}/topics/{id}", h.requireAdmin(h.renameTopic))
	mux.Handle("DELETE /categories/{categoryId}/topics/{id}", h.requireAdmin(h.deleteTopic))
	mux.HandleFunc("GET /categories/{categoryId}/topics/{id}/notes", h.getNotes)
	mux.Handle("PUT /categories/{categoryId}/topics/{id}/notes", h.requireAdmin(h.updateNotes))

	mux.HandleFunc("GET /users/admin", h.getAdmin)
	mux.HandleFunc("POST /users/admin/register", h.registerAdmin)
	mux.HandleFunc("POST /users/admin/login", h.loginAdmin)
	mux.Handle("POST /users/admin/logout", h.requireAdmin(h.logoutAdmin))

	return Chain(mux,
		h.RecoverPanic(),
		h.AccessLog(),
		h.CORS(),
		Locale(),
		Role(),
	)
}
