package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

func newTestGoogleEngine(t *testing.T, endpoint string, attempts uint) *GoogleEngine {
	t.Helper()
	engine, err := NewGoogleEngine(GoogleConfig{
		Endpoint:             endpoint,
		Timeout:              time.Second,
		MaxAttempts:          attempts,
		RetryInitialInterval: time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("new google engine: %v", err)
	}
	return engine
}

func TestGoogleEngineWritesChunksInOrder(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		query := r.URL.Query()
		if query.Get("tl") != "pl" {
			t.Errorf("tl = %q, want pl", query.Get("tl"))
		}
		if query.Get("client") != "tw-ob" {
			t.Errorf("client = %q, want tw-ob", query.Get("client"))
		}
		if got := utf8.RuneCountInString(query.Get("q")); got > maxChunkRunes {
			t.Errorf("chunk runes = %d, want <= %d", got, maxChunkRunes)
		}
		_, _ = w.Write([]byte("[" + query.Get("idx") + "]"))
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL, 1)
	text := strings.Repeat("księgowość ", 50)
	path := filepath.Join(t.TempDir(), "out.mp3")

	if err := engine.Save(context.Background(), text, language.MustParse("pl-PL"), path); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	chunks := splitText(text, maxChunkRunes)
	var want strings.Builder
	for i := range chunks {
		want.WriteString("[" + string(rune('0'+i)) + "]")
	}
	if string(data) != want.String() {
		t.Fatalf("artifact = %q, want %q", data, want.String())
	}
	if int(requests.Load()) != len(chunks) {
		t.Fatalf("requests = %d, want %d", requests.Load(), len(chunks))
	}
}

func TestGoogleEngineRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL, 3)
	path := filepath.Join(t.TempDir(), "out.mp3")
	if err := engine.Save(context.Background(), "tekst", language.Polish, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if requests.Load() != 3 {
		t.Fatalf("requests = %d, want 3", requests.Load())
	}
}

func TestGoogleEngineStopsOnClientErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL, 5)
	path := filepath.Join(t.TempDir(), "out.mp3")
	if err := engine.Save(context.Background(), "tekst", language.Polish, path); err == nil {
		t.Fatal("expected error for bad request")
	}
	if requests.Load() != 1 {
		t.Fatalf("requests = %d, want 1", requests.Load())
	}
}

func TestGoogleEngineGivesUpAfterMaxAttempts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL, 2)
	path := filepath.Join(t.TempDir(), "out.mp3")
	if err := engine.Save(context.Background(), "tekst", language.Polish, path); err == nil {
		t.Fatal("expected error after retries")
	}
	if requests.Load() != 2 {
		t.Fatalf("requests = %d, want 2", requests.Load())
	}
}

func TestNewGoogleEngineRejectsBadEndpoint(t *testing.T) {
	if _, err := NewGoogleEngine(GoogleConfig{Endpoint: "not a url"}, nil); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "  ", limit: 10, want: nil},
		{name: "fits", text: "ala ma kota", limit: 20, want: []string{"ala ma kota"}},
		{name: "packs words", text: "ala ma kota i psa", limit: 6, want: []string{"ala ma", "kota i", "psa"}},
		{name: "cuts long word", text: "abcdefgh ij", limit: 3, want: []string{"abc", "def", "gh", "ij"}},
		{name: "counts runes", text: "żółć żółć", limit: 4, want: []string{"żółć", "żółć"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitText(tc.text, tc.limit)
			if len(got) != len(tc.want) {
				t.Fatalf("splitText = %q, want %q", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("splitText[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
