// Package httpadapter exposes the answering pipeline over HTTP: a JSON
// query endpoint with an SSE streaming variant, cache statistics, health
// and metrics.
package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
	"github.com/amoralesc/faq-assistant/internal/core/ports"
	"github.com/amoralesc/faq-assistant/internal/observability/metrics"
)

type Options struct {
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxConcurrent     int
	BackpressureWait  time.Duration
	MaxMessageChars   int
	ServiceName       string
	HTTPServerMetrics *metrics.HTTPServerMetrics
	DisableRateLimit  bool

	// Readiness probes the backing services; nil means always healthy.
	Readiness func(ctx context.Context) error
}

type Router struct {
	answers ports.AnswerService
	cache   ports.CacheInspector
	opts    Options
}

func NewRouter(answers ports.AnswerService, cache ports.CacheInspector, opts Options) *Router {
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 4000
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "api"
	}
	return &Router{
		answers: answers,
		cache:   cache,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/query", rt.chatQuery)
	mux.HandleFunc("/v1/cache/stats", rt.cacheStats)
	if rt.opts.HTTPServerMetrics != nil {
		mux.Handle("/metrics", rt.opts.HTTPServerMetrics.Handler())
	}

	var handler http.Handler = mux
	if !rt.opts.DisableRateLimit && rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.opts.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, rt.opts.BackpressureWait)
	}
	if rt.opts.HTTPServerMetrics != nil {
		handler = rt.opts.HTTPServerMetrics.Middleware(rt.opts.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Readiness != nil {
		if err := rt.opts.Readiness(r.Context()); err != nil {
			slog.Warn("healthz_degraded", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) cacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats := rt.cache.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"total":   stats.Total,
		"active":  stats.Active,
		"expired": stats.Expired,
	})
}

type chatQueryRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Stream    bool   `json:"stream"`
}

func (rt *Router) chatQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if len([]rune(req.Message)) > rt.opts.MaxMessageChars {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("message exceeds %d characters", rt.opts.MaxMessageChars),
		})
		return
	}

	askReq := domain.AskRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		Streaming: req.Stream,
	}

	if req.Stream {
		rt.streamAnswer(w, r, askReq)
		return
	}

	answer, err := rt.answers.Ask(r.Context(), askReq)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.observeAnswer(answer)
	writeJSON(w, http.StatusOK, answer)
}

// streamAnswer emits chunk events as they arrive and a final done event
// carrying the full answer with its metadata.
func (rt *Router) streamAnswer(w http.ResponseWriter, r *http.Request, req domain.AskRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	answer, err := rt.answers.AskStream(r.Context(), req, func(text string) error {
		return writeSSE(w, flusher, "chunk", map[string]string{"text": text})
	})
	if err != nil {
		// Headers are already out; the error has to ride the stream.
		_ = writeSSE(w, flusher, "error", map[string]string{"error": publicError(err)})
		slog.Error("stream_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		return
	}
	rt.observeAnswer(answer)
	_ = writeSSE(w, flusher, "done", answer)
}

func (rt *Router) observeAnswer(answer *domain.Answer) {
	if rt.opts.HTTPServerMetrics == nil || answer == nil {
		return
	}
	meta := answer.Metadata
	rt.opts.HTTPServerMetrics.RecordQuery(
		rt.opts.ServiceName,
		string(meta.QueryType),
		meta.FromCache,
		meta.FAQsCount == 0,
		meta.FAQsCount,
		meta.TokensUsed,
		meta.Model,
		meta.Duration,
	)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{"error": publicError(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	flusher.Flush()
	return nil
}
