// Package notes parses notes service configuration and launches the service.
package notes

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/accounting-notes/backend/internal/platform/cmd"
	notehttp "github.com/accounting-notes/backend/internal/services/notes/api/http"
	server "github.com/accounting-notes/backend/internal/services/notes/app"
	"github.com/accounting-notes/backend/internal/services/notes/objectstore"
	"github.com/accounting-notes/backend/internal/services/notes/speech"
	"go.uber.org/zap"
)

// BucketConfig holds the S3-compatible bucket settings.
type BucketConfig struct {
	Endpoint     string        `env:"ENDPOINT"`
	Bucket       string        `env:"BUCKET"`
	AccessKey    string        `env:"ACCESS_KEY"`
	SecretKey    string        `env:"SECRET_KEY"`
	PublicURL    string        `env:"PUBLIC_URL"`
	Region       string        `env:"REGION" envDefault:"auto"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	UsePathStyle bool          `env:"USE_PATH_STYLE"`
}

// SpeechConfig holds the speech engine settings.
type SpeechConfig struct {
	Language       string        `env:"LANGUAGE" envDefault:"pl"`
	Endpoint       string        `env:"ENDPOINT"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	MaxAttempts    uint          `env:"MAX_ATTEMPTS" envDefault:"3"`
	MinBytes       int64         `env:"MIN_BYTES" envDefault:"1024"`
	TempDir        string        `env:"TEMP_DIR"`
	Rate           float64       `env:"RATE" envDefault:"2"`
}

// Config holds notes command configuration.
type Config struct {
	HTTPPort          int      `env:"NOTES_HTTP_PORT" envDefault:"5000"`
	HealthPort        int      `env:"NOTES_HEALTH_PORT" envDefault:"5001"`
	DBPath            string   `env:"NOTES_DB_PATH" envDefault:"data/notes.db"`
	Production        bool     `env:"NOTES_PRODUCTION"`
	CookieDomain      string   `env:"NOTES_COOKIE_DOMAIN"`
	AllowedOrigins    []string `env:"NOTES_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	AdminPassword     string   `env:"NOTES_ADMIN_PASSWORD" envDefault:"123"`
	LogLevel          string   `env:"NOTES_LOG_LEVEL" envDefault:"info"`
	AbbreviationsPath string   `env:"NOTES_ABBREVIATIONS_PATH"`

	Bucket BucketConfig `envPrefix:"NOTES_R2_"`
	Speech SpeechConfig `envPrefix:"NOTES_SPEECH_"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "The notes HTTP API port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The notes gRPC health port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the notes service.
func Run(ctx context.Context, cfg Config) error {
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	options := entrypoint.RunOptions{Logger: logger}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceNotes, options, func(ctx context.Context) error {
		return server.Run(ctx, cfg.serverConfig(logger))
	})
}

// NewLogger builds a production JSON logger at level.
func NewLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if level = strings.TrimSpace(level); level != "" {
		atomic, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zapConfig.Level = atomic
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service", entrypoint.ServiceNotes)), nil
}

func (c Config) serverConfig(logger *zap.Logger) server.Config {
	return server.Config{
		HTTPAddr:      fmt.Sprintf(":%d", c.HTTPPort),
		HealthAddr:    fmt.Sprintf(":%d", c.HealthPort),
		DBPath:        c.DBPath,
		AdminPassword: c.AdminPassword,
		Cookie: notehttp.CookiePolicy{
			Production: c.Production,
			Domain:     c.CookieDomain,
		},
		AllowedOrigins:    c.AllowedOrigins,
		AbbreviationsPath: c.AbbreviationsPath,
		Bucket: objectstore.ClientConfig{
			Endpoint:     c.Bucket.Endpoint,
			Region:       c.Bucket.Region,
			AccessKey:    c.Bucket.AccessKey,
			SecretKey:    c.Bucket.SecretKey,
			UsePathStyle: c.Bucket.UsePathStyle,
			MaxAttempts:  c.Bucket.MaxAttempts,
		},
		Publisher: objectstore.PublisherConfig{
			Bucket:    c.Bucket.Bucket,
			PublicURL: c.Bucket.PublicURL,
			Timeout:   c.Bucket.Timeout,
		},
		Speech: server.SpeechConfig{
			Language: c.Speech.Language,
			Engine: speech.GoogleConfig{
				Endpoint:          c.Speech.Endpoint,
				Timeout:           c.Speech.RequestTimeout,
				MaxAttempts:       c.Speech.MaxAttempts,
				RequestsPerSecond: c.Speech.Rate,
			},
			Options: speech.Options{
				TempDir:  c.Speech.TempDir,
				MinBytes: c.Speech.MinBytes,
				Timeout:  c.Speech.Timeout,
			},
		},
		Logger: logger,
	}
}
