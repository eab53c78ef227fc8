package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	notehttp "github.com/accounting-notes/backend/internal/services/notes/api/http"
	"github.com/accounting-notes/backend/internal/services/notes/narration"
	"github.com/accounting-notes/backend/internal/services/notes/normalize"
	"github.com/accounting-notes/backend/internal/services/notes/objectstore"
	"github.com/accounting-notes/backend/internal/services/notes/service"
	"github.com/accounting-notes/backend/internal/services/notes/speech"
	notessqlite "github.com/accounting-notes/backend/internal/services/notes/storage/sqlite"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SpeechConfig selects the narration language and engine settings.
type SpeechConfig struct {
	// Language is a BCP 47 tag. Empty selects Polish.
	Language string
	Engine   speech.GoogleConfig
	Options  speech.Options
}

// Config holds everything needed to assemble and serve the notes API.
type Config struct {
	HTTPAddr   string
	HealthAddr string
	DBPath     string

	AdminPassword  string
	Cookie         notehttp.CookiePolicy
	AllowedOrigins []string

	// AbbreviationsPath replaces the embedded abbreviation table when set.
	AbbreviationsPath string

	Bucket    objectstore.ClientConfig
	Publisher objectstore.PublisherConfig
	Speech    SpeechConfig

	Logger *zap.Logger
}

func openStore(ctx context.Context, path string) (*notessqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "notes.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := notessqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open notes sqlite store: %w", err)
	}
	return store, nil
}

func loadTable(path string) (*normalize.Table, error) {
	if strings.TrimSpace(path) == "" {
		return normalize.DefaultTable(), nil
	}
	table, err := normalize.LoadTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("load abbreviations: %w", err)
	}
	return table, nil
}

func parseLanguage(value string) (language.Tag, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Polish, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, fmt.Errorf("parse speech language %q: %w", value, err)
	}
	return tag, nil
}

// buildPipeline wires normalization, speech and the bucket publisher.
func buildPipeline(ctx context.Context, cfg Config, store *notessqlite.Store, logger *zap.Logger) (*narration.Pipeline, error) {
	table, err := loadTable(cfg.AbbreviationsPath)
	if err != nil {
		return nil, err
	}
	lang, err := parseLanguage(cfg.Speech.Language)
	if err != nil {
		return nil, err
	}
	engine, err := speech.NewGoogleEngine(cfg.Speech.Engine, logger.Named("speech"))
	if err != nil {
		return nil, fmt.Errorf("build speech engine: %w", err)
	}
	synthesizer, err := speech.NewSynthesizer(engine, cfg.Speech.Options, logger.Named("speech"))
	if err != nil {
		return nil, fmt.Errorf("build synthesizer: %w", err)
	}
	client, err := objectstore.NewS3Client(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("build bucket client: %w", err)
	}
	publisher, err := objectstore.NewPublisher(client, cfg.Publisher, logger.Named("objectstore"))
	if err != nil {
		return nil, fmt.Errorf("build publisher: %w", err)
	}
	pipeline, err := narration.New(narration.Config{
		Store:       store,
		Normalizer:  normalize.New(table),
		Synthesizer: synthesizer,
		Publisher:   publisher,
		Language:    lang,
		Logger:      logger.Named("narration"),
	})
	if err != nil {
		return nil, fmt.Errorf("build narration pipeline: %w", err)
	}
	logger.Info("narration pipeline ready",
		zap.Int("abbreviations", table.Len()),
		zap.Stringer("language", lang),
	)
	return pipeline, nil
}

// buildHandler assembles the services and their HTTP surface over store.
func buildHandler(ctx context.Context, cfg Config, store *notessqlite.Store, logger *zap.Logger) (*notehttp.Handler, error) {
	pipeline, err := buildPipeline(ctx, cfg, store, logger)
	if err != nil {
		return nil, err
	}
	handler, err := notehttp.NewHandler(notehttp.Config{
		Categories:     service.NewCategories(store, pipeline),
		Topics:         service.NewTopics(store, pipeline),
		Admins:         service.NewAdmins(store, cfg.AdminPassword),
		Cookie:         cfg.Cookie,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named("http"),
	})
	if err != nil {
		return nil, fmt.Errorf("build http handler: %w", err)
	}
	return handler, nil
}
