package notes

import (
	"flag"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPPort != 5000 || cfg.HealthPort != 5001 {
		t.Fatalf("ports = %d/%d, want 5000/5001", cfg.HTTPPort, cfg.HealthPort)
	}
	if cfg.DBPath != "data/notes.db" {
		t.Fatalf("db path = %q, want data/notes.db", cfg.DBPath)
	}
	if cfg.AdminPassword != "123" {
		t.Fatalf("admin password = %q, want 123", cfg.AdminPassword)
	}
	if cfg.Bucket.Region != "auto" || cfg.Bucket.Timeout != 30*time.Second || cfg.Bucket.MaxAttempts != 3 {
		t.Fatalf("bucket = %+v", cfg.Bucket)
	}
	if cfg.Speech.Language != "pl" || cfg.Speech.Timeout != time.Minute || cfg.Speech.MinBytes != 1024 || cfg.Speech.Rate != 2 {
		t.Fatalf("speech = %+v", cfg.Speech)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("NOTES_HTTP_PORT", "7000")
	t.Setenv("NOTES_PRODUCTION", "true")
	t.Setenv("NOTES_COOKIE_DOMAIN", "api.example.com")
	t.Setenv("NOTES_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("NOTES_R2_BUCKET", "narrations")
	t.Setenv("NOTES_R2_PUBLIC_URL", "https://cdn.example.com")
	t.Setenv("NOTES_R2_TIMEOUT", "5s")
	t.Setenv("NOTES_SPEECH_LANGUAGE", "en")
	t.Setenv("NOTES_SPEECH_MAX_ATTEMPTS", "5")

	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-health-port", "9001"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPPort != 7000 {
		t.Fatalf("http port = %d, want 7000", cfg.HTTPPort)
	}
	if cfg.HealthPort != 9001 {
		t.Fatalf("health port = %d, want 9001", cfg.HealthPort)
	}
	if !cfg.Production || cfg.CookieDomain != "api.example.com" {
		t.Fatalf("cookie policy = %v/%q", cfg.Production, cfg.CookieDomain)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.Bucket.Bucket != "narrations" || cfg.Bucket.Timeout != 5*time.Second {
		t.Fatalf("bucket = %+v", cfg.Bucket)
	}
	if cfg.Speech.Language != "en" || cfg.Speech.MaxAttempts != 5 {
		t.Fatalf("speech = %+v", cfg.Speech)
	}
}

func TestParseConfigRejectsBadFlag(t *testing.T) {
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	fs.SetOutput(nilWriter{})
	if _, err := ParseConfig(fs, []string{"-port", "abc"}); err == nil {
		t.Fatal("expected flag parse error")
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("NOTES_R2_TIMEOUT", "soon")
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestServerConfigMapping(t *testing.T) {
	cfg := Config{
		HTTPPort:     5000,
		HealthPort:   5001,
		Production:   true,
		CookieDomain: "api.example.com",
		Bucket: BucketConfig{
			Bucket:      "narrations",
			PublicURL:   "https://cdn.example.com",
			Timeout:     time.Second,
			MaxAttempts: 4,
		},
		Speech: SpeechConfig{
			RequestTimeout: 2 * time.Second,
			Timeout:        time.Minute,
			MaxAttempts:    3,
			Rate:           1.5,
			MinBytes:       2048,
		},
	}
	got := cfg.serverConfig(nil)
	if got.HTTPAddr != ":5000" || got.HealthAddr != ":5001" {
		t.Fatalf("addrs = %q/%q", got.HTTPAddr, got.HealthAddr)
	}
	if !got.Cookie.Production || got.Cookie.Domain != "api.example.com" {
		t.Fatalf("cookie = %+v", got.Cookie)
	}
	if got.Publisher.Bucket != "narrations" || got.Publisher.Timeout != time.Second || got.Bucket.MaxAttempts != 4 {
		t.Fatalf("bucket mapping = %+v / %+v", got.Bucket, got.Publisher)
	}
	if got.Speech.Engine.Timeout != 2*time.Second || got.Speech.Options.Timeout != time.Minute {
		t.Fatalf("speech timeouts = %v/%v", got.Speech.Engine.Timeout, got.Speech.Options.Timeout)
	}
	if got.Speech.Engine.RequestsPerSecond != 1.5 || got.Speech.Options.MinBytes != 2048 {
		t.Fatalf("speech = %+v", got.Speech)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug level should be enabled")
	}

	logger, err = NewLogger("")
	if err != nil {
		t.Fatalf("new logger with default level: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("default level should not enable debug")
	}

	if _, err := NewLogger("chatty"); err == nil {
		t.Fatal("expected invalid level error")
	}
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
