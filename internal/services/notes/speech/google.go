package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const (
	// DefaultGoogleEndpoint is the public Google Translate TTS endpoint.
	DefaultGoogleEndpoint = "https://translate.google.com/translate_tts"

	maxChunkRunes = 200
	maxChunkBytes = 8 << 20
)

// GoogleConfig configures the Google Translate engine.
type GoogleConfig struct {
	Endpoint string
	// Timeout bounds one HTTP request.
	Timeout time.Duration
	// MaxAttempts per chunk. Zero means 3.
	MaxAttempts uint
	// RequestsPerSecond paces chunk requests. Zero disables pacing.
	RequestsPerSecond float64
	// RetryInitialInterval is the first backoff delay. Zero means 500ms.
	RetryInitialInterval time.Duration
	HTTPClient           *http.Client
}

// GoogleEngine speaks text with the Google Translate TTS endpoint. Text is
// split into chunks the endpoint accepts and the MP3 frames are appended
// to one file.
type GoogleEngine struct {
	endpoint        string
	client          *http.Client
	timeout         time.Duration
	limiter         *rate.Limiter
	maxAttempts     uint
	initialInterval time.Duration
	logger          *zap.Logger
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tts endpoint returned %d %s", e.status, http.StatusText(e.status))
}

// NewGoogleEngine builds a GoogleEngine.
func NewGoogleEngine(cfg GoogleConfig, logger *zap.Logger) (*GoogleEngine, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("parse tts endpoint: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	initialInterval := cfg.RetryInitialInterval
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &GoogleEngine{
		endpoint:        endpoint,
		client:          client,
		timeout:         cfg.Timeout,
		limiter:         limiter,
		maxAttempts:     maxAttempts,
		initialInterval: initialInterval,
		logger:          logger,
	}, nil
}

// Save fetches every chunk of text and writes the audio to path.
func (e *GoogleEngine) Save(ctx context.Context, text string, lang language.Tag, path string) error {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return errors.New("no text to speak")
	}
	base, _ := lang.Base()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	for i, chunk := range chunks {
		audio, err := e.fetch(ctx, chunk, base.String(), i, len(chunks))
		if err != nil {
			_ = file.Close()
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if _, err := file.Write(audio); err != nil {
			_ = file.Close()
			return fmt.Errorf("write artifact: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}

func (e *GoogleEngine) fetch(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.initialInterval

	return backoff.Retry(ctx, func() ([]byte, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		audio, err := e.request(ctx, chunk, lang, idx, total)
		if err != nil {
			var status *statusError
			if errors.As(err, &status) && status.status != http.StatusTooManyRequests && status.status < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return audio, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(e.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			e.logger.Warn("retrying tts request",
				zap.Int("chunk", idx),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
}

func (e *GoogleEngine) request(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", lang)
	query.Set("q", chunk)
	query.Set("total", strconv.Itoa(total))
	query.Set("idx", strconv.Itoa(idx))
	query.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build tts request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{status: resp.StatusCode}
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxChunkBytes))
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return audio, nil
}

// splitText packs whole words into chunks of at most limit runes. Words
// longer than limit are cut.
func splitText(text string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:limit]))
			word = string(runes[limit:])
		}
		length := utf8.RuneCountInString(word)
		if size > 0 && size+1+length > limit {
			flush()
		}
		if size > 0 {
			current.WriteByte(' ')
			size++
		}
		current.WriteString(word)
		size += length
	}
	flush()
	return chunks
}

var _ Engine = (*GoogleEngine)(nil)
