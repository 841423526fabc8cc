package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
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

func TestSearchSendsThresholdAndActiveFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/faqs/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"faq_id":"f1","question":"¿Cuándo abren inscripciones?","answer":"En septiembre.","category":"admisiones","keywords":["inscripciones","fechas"]}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "faqs", testExecutor())
	results, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5, 0.7)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if captured["score_threshold"].(float64) != 0.7 {
		t.Fatalf("score_threshold = %v", captured["score_threshold"])
	}
	if captured["limit"].(float64) != 5 {
		t.Fatalf("limit = %v", captured["limit"])
	}
	if captured["filter"] == nil {
		t.Fatal("active filter missing")
	}

	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	got := results[0]
	if got.ID != "f1" || got.Similarity != 0.91 {
		t.Fatalf("result = %+v", got)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "inscripciones" {
		t.Fatalf("keywords = %v", got.Keywords)
	}
}

func TestSearchRetriesTransientStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":[{"score":0.8,"payload":{"faq_id":"f1"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "faqs", testExecutor())
	results, err := client.Search(context.Background(), []float32{0.1}, 1, 0.7)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(results) != 1 || results[0].ID != "f1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestIndexEntriesCreatesCollectionOnce(t *testing.T) {
	createCalls := 0
	upsertCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/faqs":
			createCalls++
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			vectors := payload["vectors"].(map[string]any)
			if vectors["size"].(float64) != 2 {
				t.Fatalf("vector size = %v", vectors["size"])
			}
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/faqs/points":
			upsertCalls++
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "faqs", testExecutor())
	entries := []domain.KnowledgeEntry{{ID: "f1", Question: "q", Answer: "a", IsActive: true}}
	vectors := [][]float32{{0.1, 0.2}}

	for i := 0; i < 2; i++ {
		if err := client.IndexEntries(context.Background(), entries, vectors); err != nil {
			t.Fatalf("IndexEntries() error = %v", err)
		}
	}
	if createCalls != 1 {
		t.Fatalf("collection created %d times, want 1", createCalls)
	}
	if upsertCalls != 2 {
		t.Fatalf("upsert calls = %d, want 2", upsertCalls)
	}
}

func TestIndexEntriesMismatch(t *testing.T) {
	client := New("http://unused", "faqs", testExecutor())
	err := client.IndexEntries(context.Background(), []domain.KnowledgeEntry{{ID: "f1"}}, nil)
	if err != nil {
		t.Fatalf("empty vectors should be a no-op, got %v", err)
	}
	err = client.IndexEntries(context.Background(), []domain.KnowledgeEntry{{ID: "f1"}}, [][]float32{{1}, {2}})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}
