package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal      *prometheus.CounterVec
	cacheLookupsTotal *prometheus.CounterVec
	retrievedEntries  *prometheus.HistogramVec
	noContextTotal    *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	llmTokensTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Total answered queries by query type.",
		},
		[]string{"service", "query_type"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "pipeline",
			Name:      "cache_lookups_total",
			Help:      "Semantic cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievedEntries := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "pipeline",
			Name:      "retrieved_entries",
			Help:      "Distribution of retrieved FAQ entries per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "pipeline",
			Name:      "no_context_total",
			Help:      "Total answered queries without grounding context.",
		},
		[]string{"service"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage per model.",
		},
		[]string{"service", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		cacheLookupsTotal,
		retrievedEntries,
		noContextTotal,
		pipelineDuration,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		queriesTotal:      queriesTotal,
		cacheLookupsTotal: cacheLookupsTotal,
		retrievedEntries:  retrievedEntries,
		noContextTotal:    noContextTotal,
		pipelineDuration:  pipelineDuration,
		llmTokensTotal:    llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordQuery captures one completed pipeline run.
func (m *HTTPServerMetrics) RecordQuery(service, queryType string, fromCache, noContext bool, sourceCount, tokensUsed int, model string, duration time.Duration) {
	if queryType == "" {
		queryType = "unknown"
	}
	m.queriesTotal.WithLabelValues(service, queryType).Inc()
	m.pipelineDuration.WithLabelValues(service).Observe(duration.Seconds())

	outcome := "miss"
	if fromCache {
		outcome = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(service, outcome).Inc()

	if !fromCache {
		m.retrievedEntries.WithLabelValues(service).Observe(float64(sourceCount))
		if noContext {
			m.noContextTotal.WithLabelValues(service).Inc()
		}
	}
	if tokensUsed > 0 {
		if model == "" {
			model = "unknown"
		}
		m.llmTokensTotal.WithLabelValues(service, model).Add(float64(tokensUsed))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
