// Package narration keeps a topic's spoken audio in step with its notes.
//
// An update persists the raw notes first and never rolls them back. Audio
// problems after that point degrade to keeping or clearing the previous
// narration; only a missing category or topic fails the update.
package narration

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	apperrors "github.com/accounting-notes/backend/internal/platform/errors"
	"github.com/accounting-notes/backend/internal/services/notes/normalize"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	tracerName = "github.com/accounting-notes/backend/internal/services/notes/narration"

	// AudioContentType is the media type of published narrations.
	AudioContentType = "audio/mpeg"
)

// Store is the persistence the pipeline reads and writes.
type Store interface {
	GetCategory(ctx context.Context, id string) (storage.Category, error)
	GetTopic(ctx context.Context, categoryID string, id string) (storage.Topic, error)
	UpdateTopicContent(ctx context.Context, id string, content *string) error
	UpdateTopicAudio(ctx context.Context, id string, audioURL *string) error
}

// Normalizer rewrites raw notes into speakable text.
type Normalizer interface {
	Normalize(raw string) string
}

// Synthesizer speaks normalized text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang language.Tag) ([]byte, error)
}

// Publisher stores narration objects.
type Publisher interface {
	Publish(ctx context.Context, data []byte, key string, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Outcome describes what happened to the narration during an update.
type Outcome string

const (
	// OutcomePublished means new audio replaced the narration.
	OutcomePublished Outcome = "published"
	// OutcomeCleared means the narration was withdrawn.
	OutcomeCleared Outcome = "cleared"
	// OutcomeUnchanged means the previous narration reference was kept.
	OutcomeUnchanged Outcome = "unchanged"
)

// Result is the topic state after an update.
type Result struct {
	ID       string
	Title    string
	Content  *string
	AudioURL *string
	Outcome  Outcome
}

// Config wires the pipeline collaborators.
type Config struct {
	Store       Store
	Normalizer  Normalizer
	Synthesizer Synthesizer
	Publisher   Publisher
	Language    language.Tag
	Logger      *zap.Logger
}

// Pipeline runs note updates.
type Pipeline struct {
	store       Store
	normalizer  Normalizer
	synthesizer Synthesizer
	publisher   Publisher
	lang        language.Tag
	logger      *zap.Logger
	tracer      trace.Tracer
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("narration store is required")
	case cfg.Normalizer == nil:
		return nil, errors.New("narration normalizer is required")
	case cfg.Synthesizer == nil:
		return nil, errors.New("narration synthesizer is required")
	case cfg.Publisher == nil:
		return nil, errors.New("narration publisher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lang := cfg.Language
	if lang == language.Und {
		lang = language.Polish
	}
	return &Pipeline{
		store:       cfg.Store,
		normalizer:  cfg.Normalizer,
		synthesizer: cfg.Synthesizer,
		publisher:   cfg.Publisher,
		lang:        lang,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// AudioKey returns the object key of a topic's narration.
func AudioKey(topicID string) string {
	return topicID + ".mp3"
}

// UpdateNotes replaces a topic's notes and re-derives its narration.
func (p *Pipeline) UpdateNotes(ctx context.Context, categoryID, topicID string, content *string) (result Result, err error) {
	ctx, span := p.tracer.Start(ctx, "narration.UpdateNotes", trace.WithAttributes(
		attribute.String("category.id", categoryID),
		attribute.String("topic.id", topicID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	logger := p.logger.With(zap.String("topic_id", topicID))

	topic, err := p.validate(ctx, categoryID, topicID)
	if err != nil {
		return Result{}, err
	}

	if err := p.store.UpdateTopicContent(ctx, topic.ID, content); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, apperrors.New(apperrors.CodeTopicNotFound, "topic not found")
		}
		return Result{}, fmt.Errorf("persist notes: %w", err)
	}
	span.AddEvent("notes.persisted")

	raw := ""
	if content != nil {
		raw = *content
	}
	normalized := p.normalizer.Normalize(raw)
	meaningful := normalize.IsMeaningful(normalized)
	span.AddEvent("notes.normalized", trace.WithAttributes(
		attribute.Bool("meaningful", meaningful),
		attribute.Int("runes", utf8.RuneCountInString(normalized)),
	))

	audioURL, outcome := p.reconcileAudio(ctx, span, logger, topic, normalized, meaningful)
	span.SetAttributes(attribute.String("narration.outcome", string(outcome)))

	if err := p.store.UpdateTopicAudio(ctx, topic.ID, audioURL); err != nil {
		logger.Error("persist narration reference", zap.String("outcome", string(outcome)), zap.Error(err))
		span.AddEvent("audio.reference_not_persisted")
		audioURL, outcome = topic.AudioURL, OutcomeUnchanged
	}

	return Result{
		ID:       topic.ID,
		Title:    topic.Title,
		Content:  content,
		AudioURL: audioURL,
		Outcome:  outcome,
	}, nil
}

// DiscardAudio removes the narrations of deleted topics. Failures are logged.
func (p *Pipeline) DiscardAudio(ctx context.Context, topicIDs ...string) {
	for _, topicID := range topicIDs {
		if err := p.publisher.Remove(ctx, AudioKey(topicID)); err != nil {
			p.logger.Warn("remove narration of deleted topic", zap.String("topic_id", topicID), zap.Error(err))
		}
	}
}

func (p *Pipeline) validate(ctx context.Context, categoryID, topicID string) (storage.Topic, error) {
	if _, err := p.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Topic{}, apperrors.New(apperrors.CodeCategoryNotFound, "category not found")
		}
		return storage.Topic{}, fmt.Errorf("get category: %w", err)
	}
	topic, err := p.store.GetTopic(ctx, categoryID, topicID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Topic{}, apperrors.New(apperrors.CodeTopicNotFound, "topic not found")
		}
		return storage.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

// reconcileAudio decides the narration reference for the new notes. It
// never fails: every audio error falls back to the previous state.
func (p *Pipeline) reconcileAudio(ctx context.Context, span trace.Span, logger *zap.Logger, topic storage.Topic, normalized string, meaningful bool) (*string, Outcome) {
	key := AudioKey(topic.ID)

	if !meaningful {
		if !topic.HasAudio() {
			return topic.AudioURL, OutcomeUnchanged
		}
		p.removeStale(ctx, span, logger, key)
		return emptyReference(), OutcomeCleared
	}

	audio, err := p.synthesizer.Synthesize(ctx, normalized, p.lang)
	if err != nil {
		logger.Warn("speech synthesis failed, keeping previous narration", zap.Error(err))
		span.AddEvent("audio.synthesis_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		return topic.AudioURL, OutcomeUnchanged
	}
	span.AddEvent("audio.synthesized", trace.WithAttributes(attribute.Int("bytes", len(audio))))

	if topic.HasAudio() {
		p.removeStale(ctx, span, logger, key)
	}
	url, err := p.publisher.Publish(ctx, audio, key, AudioContentType)
	if err != nil {
		logger.Warn("publish narration failed", zap.String("key", key), zap.Error(err))
		span.AddEvent("audio.publish_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		if topic.HasAudio() {
			// The stale object is already gone.
			return emptyReference(), OutcomeCleared
		}
		return topic.AudioURL, OutcomeUnchanged
	}
	span.AddEvent("audio.published", trace.WithAttributes(attribute.String("key", key)))
	return &url, OutcomePublished
}

func (p *Pipeline) removeStale(ctx context.Context, span trace.Span, logger *zap.Logger, key string) {
	if err := p.publisher.Remove(ctx, key); err != nil {
		logger.Warn("remove previous narration", zap.String("key", key), zap.Error(err))
		span.AddEvent("audio.remove_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		return
	}
	span.AddEvent("audio.removed", trace.WithAttributes(attribute.String("key", key)))
}

func emptyReference() *string {
	empty := ""
	return &empty
}
