// Package speech turns normalized text into MP3 audio through an external
// text-to-speech engine.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// DefaultMinBytes is the smallest artifact accepted as audio.
const DefaultMinBytes = 1024

const artifactName = "speech.mp3"

// Engine writes spoken text as audio to path.
type Engine interface {
	Save(ctx context.Context, text string, lang language.Tag, path string) error
}

// Options configures a Synthesizer.
type Options struct {
	// TempDir holds per-call scratch directories. Empty selects os.TempDir.
	TempDir string
	// MinBytes rejects smaller artifacts. Zero selects DefaultMinBytes.
	MinBytes int64
	// Timeout bounds one engine call. Zero disables it.
	Timeout time.Duration
}

// Synthesizer adapts an Engine to an in-memory audio result.
type Synthesizer struct {
	engine   Engine
	tempDir  string
	minBytes int64
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSynthesizer builds a Synthesizer around engine.
func NewSynthesizer(engine Engine, opts Options, logger *zap.Logger) (*Synthesizer, error) {
	if engine == nil {
		return nil, errors.New("speech engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	minBytes := opts.MinBytes
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	return &Synthesizer{
		engine:   engine,
		tempDir:  opts.TempDir,
		minBytes: minBytes,
		timeout:  opts.Timeout,
		logger:   logger,
	}, nil
}

// Synthesize returns MP3 bytes for text.
//
// Every call works in its own scratch directory, which is removed before
// Synthesize returns on every path. All failures are *SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, lang language.Tag) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, synthesisError(ReasonEmptyText, nil)
	}

	dir, err := os.MkdirTemp(s.tempDir, "speech-*")
	if err != nil {
		return nil, synthesisError(ReasonTempFile, fmt.Errorf("create scratch dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("remove speech scratch dir", zap.String("dir", dir), zap.Error(err))
		}
	}()
	path := filepath.Join(dir, artifactName)

	engineCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		engineCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.engine.Save(engineCtx, text, lang, path); err != nil {
		return nil, synthesisError(ReasonEngine, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, synthesisError(ReasonMissingArtifact, err)
		}
		return nil, synthesisError(ReasonTempFile, fmt.Errorf("stat artifact: %w", err))
	}
	if info.Size() < s.minBytes {
		return nil, synthesisError(ReasonShortArtifact, fmt.Errorf("artifact is %d bytes, want at least %d", info.Size(), s.minBytes))
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, synthesisError(ReasonTempFile, fmt.Errorf("read artifact: %w", err))
	}
	s.logger.Debug("speech synthesized",
		zap.String("lang", lang.String()),
		zap.Int("text_runes", len([]rune(text))),
		zap.Int("audio_bytes", len(audio)),
	)
	return audio, nil
}
