package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amoralesc/faq-assistant/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
	})
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) (*Generator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	gen, err := NewGenerator(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o-mini",
	}, testExecutor())
	if err != nil {
		server.Close()
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return gen, server
}

func TestGenerateReturnsCompletion(t *testing.T) {
	gen, server := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "  Las inscripciones abren en septiembre.  "}}],
			"usage": {"total_tokens": 77}
		}`))
	})
	defer server.Close()

	got, err := gen.Generate(context.Background(), "system", "context")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Text != "Las inscripciones abren en septiembre." {
		t.Fatalf("text = %q", got.Text)
	}
	if got.TokensUsed != 77 {
		t.Fatalf("tokens = %d, want 77", got.TokensUsed)
	}
}

func TestGenerateRetriesServerError(t *testing.T) {
	calls := 0
	gen, server := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	})
	defer server.Close()

	if _, err := gen.Generate(context.Background(), "s", "c"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestGenerateStreamForwardsDeltas(t *testing.T) {
	gen, server := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"content":"Hola"}}]}`,
			`{"choices":[{"delta":{"content":" mundo."}}]}`,
		}
		for _, chunk := range chunks {
			_, _ = w.Write([]byte("data: " + chunk + "\n\n"))
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	})
	defer server.Close()

	var received []string
	got, err := gen.GenerateStream(context.Background(), "s", "c", func(delta string) error {
		received = append(received, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if got.Text != "Hola mundo." {
		t.Fatalf("text = %q", got.Text)
	}
	if len(received) != 2 {
		t.Fatalf("chunks = %v", received)
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(Config{}, testExecutor()); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
