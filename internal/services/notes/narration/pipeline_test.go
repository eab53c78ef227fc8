package narration

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/accounting-notes/backend/internal/platform/errors"
	"github.com/accounting-notes/backend/internal/services/notes/normalize"
	"github.com/accounting-notes/backend/internal/services/notes/speech"
	"github.com/accounting-notes/backend/internal/services/notes/storage"
	"golang.org/x/text/language"
)

type fakeStore struct {
	categories    map[string]storage.Category
	topics        map[string]storage.Topic
	contentWrites int
	audioWrites   int
	contentErr    error
	audioErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: map[string]storage.Category{"cat-1": {ID: "cat-1", Name: "Podatki"}},
		topics:     map[string]storage.Topic{},
	}
}

func (s *fakeStore) GetCategory(_ context.Context, id string) (storage.Category, error) {
	category, ok := s.categories[id]
	if !ok {
		return storage.Category{}, storage.ErrNotFound
	}
	return category, nil
}

func (s *fakeStore) GetTopic(_ context.Context, categoryID string, id string) (storage.Topic, error) {
	topic, ok := s.topics[id]
	if !ok || topic.CategoryID != categoryID {
		return storage.Topic{}, storage.ErrNotFound
	}
	return topic, nil
}

func (s *fakeStore) UpdateTopicContent(_ context.Context, id string, content *string) error {
	s.contentWrites++
	if s.contentErr != nil {
		return s.contentErr
	}
	topic, ok := s.topics[id]
	if !ok {
		return storage.ErrNotFound
	}
	topic.Content = content
	s.topics[id] = topic
	return nil
}

func (s *fakeStore) UpdateTopicAudio(_ context.Context, id string, audioURL *string) error {
	s.audioWrites++
	if s.audioErr != nil {
		return s.audioErr
	}
	topic, ok := s.topics[id]
	if !ok {
		return storage.ErrNotFound
	}
	topic.AudioURL = audioURL
	s.topics[id] = topic
	return nil
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, _ language.Tag) ([]byte, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

type fakePublisher struct {
	calls      []string
	objects    map[string][]byte
	publishErr error
	removeErr  error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{objects: map[string][]byte{}}
}

func (f *fakePublisher) Publish(_ context.Context, data []byte, key string, contentType string) (string, error) {
	f.calls = append(f.calls, "publish:"+key)
	if f.publishErr != nil {
		return "", f.publishErr
	}
	if contentType != AudioContentType {
		return "", errors.New("unexpected content type " + contentType)
	}
	f.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (f *fakePublisher) Remove(_ context.Context, key string) error {
	f.calls = append(f.calls, "remove:"+key)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	return nil
}

type harness struct {
	store     *fakeStore
	synth     *fakeSynthesizer
	publisher *fakePublisher
	pipeline  *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     newFakeStore(),
		synth:     &fakeSynthesizer{audio: []byte("mp3-bytes")},
		publisher: newFakePublisher(),
	}
	pipeline, err := New(Config{
		Store:       h.store,
		Normalizer:  normalize.New(nil),
		Synthesizer: h.synth,
		Publisher:   h.publisher,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	h.pipeline = pipeline
	return h
}

func (h *harness) seedTopic(id string, content, audioURL *string) {
	h.store.topics[id] = storage.Topic{ID: id, CategoryID: "cat-1", Title: "Temat " + id, Content: content, AudioURL: audioURL}
	if audioURL != nil && *audioURL != "" {
		h.publisher.objects[AudioKey(id)] = []byte("old")
	}
}

func strPtr(value string) *string {
	return &value
}

func deref(value *string) string {
	if value == nil {
		return "<nil>"
	}
	return *value
}

func TestUpdateNotesEmptyContentClearsPreviousAudio(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/t-1.mp3"))

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr(""))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if result.AudioURL == nil || *result.AudioURL != "" {
		t.Fatalf("result audio = %s, want empty", deref(result.AudioURL))
	}
	if result.Outcome != OutcomeCleared {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeCleared)
	}
	stored := h.store.topics["t-1"]
	if stored.AudioURL == nil || *stored.AudioURL != "" {
		t.Fatalf("stored audio = %s, want empty", deref(stored.AudioURL))
	}
	if len(h.publisher.calls) != 1 || h.publisher.calls[0] != "remove:t-1.mp3" {
		t.Fatalf("publisher calls = %v, want [remove:t-1.mp3]", h.publisher.calls)
	}
	if len(h.synth.texts) != 0 {
		t.Fatalf("synthesizer called with %v, want no calls", h.synth.texts)
	}
}

func TestUpdateNotesMeaninglessContentWithoutAudioLeavesReferenceAbsent(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", nil, nil)

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("  ✅ ... 🎉 "))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if result.AudioURL != nil {
		t.Fatalf("result audio = %s, want nil", deref(result.AudioURL))
	}
	if result.Outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeUnchanged)
	}
	if len(h.publisher.calls) != 0 {
		t.Fatalf("publisher calls = %v, want none", h.publisher.calls)
	}
	if deref(h.store.topics["t-1"].Content) != "  ✅ ... 🎉 " {
		t.Fatalf("stored content = %q, want raw text", deref(h.store.topics["t-1"].Content))
	}
}

func TestUpdateNotesNilContentIsTreatedAsEmpty(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/t-1.mp3"))

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", nil)
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if result.Content != nil || h.store.topics["t-1"].Content != nil {
		t.Fatalf("content = %s, want nil", deref(result.Content))
	}
	if result.Outcome != OutcomeCleared {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeCleared)
	}
}

func TestUpdateNotesPublishesNewAudio(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/t-1.mp3"))

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Stawka VAT 23%"))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if deref(result.AudioURL) != "https://cdn.example.com/t-1.mp3" {
		t.Fatalf("audio = %s, want published url", deref(result.AudioURL))
	}
	if result.Outcome != OutcomePublished {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomePublished)
	}
	if result.ID != "t-1" || result.Title != "Temat t-1" || deref(result.Content) != "Stawka VAT 23%" {
		t.Fatalf("result = %+v", result)
	}
	want := []string{"remove:t-1.mp3", "publish:t-1.mp3"}
	if len(h.publisher.calls) != len(want) || h.publisher.calls[0] != want[0] || h.publisher.calls[1] != want[1] {
		t.Fatalf("publisher calls = %v, want %v", h.publisher.calls, want)
	}
	if len(h.synth.texts) != 1 || h.synth.texts[0] != "Stawka wat 23 procent" {
		t.Fatalf("synthesized texts = %q, want normalized text", h.synth.texts)
	}
	if string(h.publisher.objects["t-1.mp3"]) != "mp3-bytes" {
		t.Fatalf("stored object = %q, want mp3-bytes", h.publisher.objects["t-1.mp3"])
	}
}

func TestUpdateNotesFirstNarrationSkipsRemove(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", nil, nil)

	if _, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Nowe notatki")); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if len(h.publisher.calls) != 1 || h.publisher.calls[0] != "publish:t-1.mp3" {
		t.Fatalf("publisher calls = %v, want [publish:t-1.mp3]", h.publisher.calls)
	}
}

func TestUpdateNotesSynthesisFailureKeepsPreviousAudio(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/t-1.mp3"))
	h.synth.err = &speech.SynthesisError{Reason: speech.ReasonEngine, Err: errors.New("engine down")}

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Nowe notatki"))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if deref(result.AudioURL) != "https://cdn.example.com/t-1.mp3" {
		t.Fatalf("audio = %s, want previous url", deref(result.AudioURL))
	}
	if result.Outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeUnchanged)
	}
	stored := h.store.topics["t-1"]
	if deref(stored.Content) != "Nowe notatki" {
		t.Fatalf("stored content = %s, want new text", deref(stored.Content))
	}
	if deref(stored.AudioURL) != "https://cdn.example.com/t-1.mp3" {
		t.Fatalf("stored audio = %s, want previous url", deref(stored.AudioURL))
	}
	if len(h.publisher.calls) != 0 {
		t.Fatalf("publisher calls = %v, want none", h.publisher.calls)
	}
	if _, ok := h.publisher.objects["t-1.mp3"]; !ok {
		t.Fatal("previous object was removed")
	}
}

func TestUpdateNotesStaleRemoveFailureStillPublishes(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/t-1.mp3"))
	h.publisher.removeErr = errors.New("access denied")

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Nowe notatki"))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if result.Outcome != OutcomePublished {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomePublished)
	}
}

func TestUpdateNotesPublishFailure(t *testing.T) {
	tests := []struct {
		name        string
		audioURL    *string
		wantAudio   string
		wantOutcome Outcome
	}{
		{name: "previous narration removed", audioURL: strPtr("https://cdn.example.com/t-1.mp3"), wantAudio: "", wantOutcome: OutcomeCleared},
		{name: "no previous narration", audioURL: nil, wantAudio: "<nil>", wantOutcome: OutcomeUnchanged},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.seedTopic("t-1", strPtr("stare"), tc.audioURL)
			h.publisher.publishErr = errors.New("bucket unavailable")

			result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Nowe notatki"))
			if err != nil {
				t.Fatalf("update notes: %v", err)
			}
			if deref(result.AudioURL) != tc.wantAudio {
				t.Fatalf("audio = %s, want %s", deref(result.AudioURL), tc.wantAudio)
			}
			if result.Outcome != tc.wantOutcome {
				t.Fatalf("outcome = %q, want %q", result.Outcome, tc.wantOutcome)
			}
			if deref(h.store.topics["t-1"].Content) != "Nowe notatki" {
				t.Fatal("content not persisted")
			}
		})
	}
}

func TestUpdateNotesAudioPersistFailureReturnsStoredReference(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", strPtr("stare"), strPtr("https://cdn.example.com/old.mp3"))
	h.store.audioErr = errors.New("database is locked")

	result, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("Nowe notatki"))
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if deref(result.AudioURL) != "https://cdn.example.com/old.mp3" {
		t.Fatalf("audio = %s, want stored reference", deref(result.AudioURL))
	}
	if result.Outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeUnchanged)
	}
}

func TestUpdateNotesValidation(t *testing.T) {
	tests := []struct {
		name       string
		categoryID string
		topicID    string
		wantCode   apperrors.Code
	}{
		{name: "missing category", categoryID: "missing", topicID: "t-1", wantCode: apperrors.CodeCategoryNotFound},
		{name: "missing topic", categoryID: "cat-1", topicID: "missing", wantCode: apperrors.CodeTopicNotFound},
		{name: "topic in other category", categoryID: "cat-2", topicID: "t-1", wantCode: apperrors.CodeTopicNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.categories["cat-2"] = storage.Category{ID: "cat-2", Name: "Kadry"}
			h.seedTopic("t-1", nil, nil)

			_, err := h.pipeline.UpdateNotes(context.Background(), tc.categoryID, tc.topicID, strPtr("tekst"))
			if got := apperrors.CodeOf(err); got != tc.wantCode {
				t.Fatalf("code = %q, want %q (err %v)", got, tc.wantCode, err)
			}
			if h.store.contentWrites != 0 {
				t.Fatalf("content writes = %d, want 0", h.store.contentWrites)
			}
			if len(h.synth.texts) != 0 || len(h.publisher.calls) != 0 {
				t.Fatal("audio pipeline ran for a failed validation")
			}
		})
	}
}

func TestUpdateNotesContentPersistFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.seedTopic("t-1", nil, nil)
	h.store.contentErr = errors.New("disk full")

	if _, err := h.pipeline.UpdateNotes(context.Background(), "cat-1", "t-1", strPtr("tekst")); !errors.Is(err, h.store.contentErr) {
		t.Fatalf("err = %v, want wrapped disk full", err)
	}
	if len(h.synth.texts) != 0 {
		t.Fatal("synthesizer ran after failed content write")
	}
	if h.store.audioWrites != 0 {
		t.Fatalf("audio writes = %d, want 0", h.store.audioWrites)
	}
}

func TestDiscardAudioRemovesEveryKey(t *testing.T) {
	h := newHarness(t)
	h.pipeline.DiscardAudio(context.Background(), "t-1", "t-2")
	if len(h.publisher.calls) != 2 || h.publisher.calls[0] != "remove:t-1.mp3" || h.publisher.calls[1] != "remove:t-2.mp3" {
		t.Fatalf("publisher calls = %v", h.publisher.calls)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	store := newFakeStore()
	synth := &fakeSynthesizer{}
	publisher := newFakePublisher()
	normalizer := normalize.New(nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "store", cfg: Config{Normalizer: normalizer, Synthesizer: synth, Publisher: publisher}},
		{name: "normalizer", cfg: Config{Store: store, Synthesizer: synth, Publisher: publisher}},
		{name: "synthesizer", cfg: Config{Store: store, Normalizer: normalizer, Publisher: publisher}},
		{name: "publisher", cfg: Config{Store: store, Normalizer: normalizer, Synthesizer: synth}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected missing collaborator error")
			}
		})
	}
}

func TestAudioKey(t *testing.T) {
	if got := AudioKey("abc"); got != "abc.mp3" {
		t.Fatalf("AudioKey = %q, want abc.mp3", got)
	}
}
