package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheOperation identifies the derivative-cache method being instrumented.
type CacheOperation string

const (
	// CacheOperationLookup records freshness-check calls against the cache tree.
	CacheOperationLookup CacheOperation = "lookup"
	// CacheOperationStore records derivative write attempts.
	CacheOperationStore CacheOperation = "store"
)

// CacheLookupOutcome captures the result of a freshness check.
type CacheLookupOutcome string

const (
	// CacheLookupHit indicates an up-to-date derivative was reused.
	CacheLookupHit CacheLookupOutcome = "hit"
	// CacheLookupMiss indicates the derivative was absent.
	CacheLookupMiss CacheLookupOutcome = "miss"
	// CacheLookupStale indicates the derivative predated its source.
	CacheLookupStale CacheLookupOutcome = "stale"
)

// CacheStoreOutcome captures the result of a derivative write.
type CacheStoreOutcome string

const (
	// CacheStoreStored indicates the derivative was persisted.
	CacheStoreStored CacheStoreOutcome = "stored"
	// CacheStoreError indicates the write failed.
	CacheStoreError CacheStoreOutcome = "error"
)

// BackendOutcome captures a single backend attempt.
type BackendOutcome string

const (
	// BackendSuccess indicates the backend produced the derivative.
	BackendSuccess BackendOutcome = "success"
	// BackendFailure indicates the backend failed and the chain moved on.
	BackendFailure BackendOutcome = "failure"
)

// Recorder publishes Prometheus metrics for resize activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	resizeRequests *prometheus.CounterVec
	resizeLatency  *prometheus.HistogramVec

	cacheOperations *prometheus.CounterVec

	backendAttempts *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a
// dedicated registry is created so multiple recorders can coexist without
// conflicting with the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	resizeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgctrl",
		Subsystem: "resize",
		Name:      "requests_total",
		Help:      "Total resize requests processed by the orchestrator.",
	}, []string{"encoding", "outcome", "backend", "from_cache"})

	resizeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "imgctrl",
		Subsystem: "resize",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed resize requests.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"encoding", "outcome"})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgctrl",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Derivative cache operations executed by the orchestrator.",
	}, []string{"operation", "result"})

	backendAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgctrl",
		Subsystem: "backend",
		Name:      "attempts_total",
		Help:      "Backend attempts made while walking the fallback chain.",
	}, []string{"backend", "result"})

	backendLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "imgctrl",
		Subsystem: "backend",
		Name:      "attempt_duration_seconds",
		Help:      "Latency distribution for individual backend attempts.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"backend", "result"})

	reg.MustRegister(resizeRequests, resizeLatency, cacheOperations, backendAttempts, backendLatency)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:        reg,
		handler:         handler,
		resizeRequests:  resizeRequests,
		resizeLatency:   resizeLatency,
		cacheOperations: cacheOperations,
		backendAttempts: backendAttempts,
		backendLatency:  backendLatency,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveResize records the outcome and latency for a completed resize request.
// backend is the chain member that produced the derivative, empty when the
// request was served from cache or failed outright.
func (r *Recorder) ObserveResize(encoding, outcome, backend string, fromCache bool, duration time.Duration) {
	if r == nil {
		return
	}
	encodingLabel := normalizeLabel(encoding)
	outcomeLabel := normalizeLabel(outcome)
	backendLabel := backend
	if strings.TrimSpace(backendLabel) == "" {
		backendLabel = "none"
	}
	cacheLabel := "false"
	if fromCache {
		cacheLabel = "true"
	}
	r.resizeRequests.WithLabelValues(encodingLabel, outcomeLabel, backendLabel, cacheLabel).Inc()
	r.resizeLatency.WithLabelValues(encodingLabel, outcomeLabel).Observe(duration.Seconds())
}

// ObserveCacheLookup records the result of a freshness check.
func (r *Recorder) ObserveCacheLookup(result CacheLookupOutcome) {
	if r == nil {
		return
	}
	resultLabel := string(result)
	if resultLabel == "" {
		resultLabel = string(CacheLookupMiss)
	}
	r.cacheOperations.WithLabelValues(string(CacheOperationLookup), normalizeLabel(resultLabel)).Inc()
}

// ObserveCacheStore records the result of a derivative write.
func (r *Recorder) ObserveCacheStore(result CacheStoreOutcome) {
	if r == nil {
		return
	}
	resultLabel := string(result)
	if resultLabel == "" {
		resultLabel = string(CacheStoreError)
	}
	r.cacheOperations.WithLabelValues(string(CacheOperationStore), normalizeLabel(resultLabel)).Inc()
}

// ObserveBackend records a single attempt in the fallback chain.
func (r *Recorder) ObserveBackend(backend string, result BackendOutcome, duration time.Duration) {
	if r == nil {
		return
	}
	backendLabel := normalizeLabel(backend)
	resultLabel := string(result)
	if resultLabel == "" {
		resultLabel = string(BackendFailure)
	}
	r.backendAttempts.WithLabelValues(backendLabel, resultLabel).Inc()
	r.backendLatency.WithLabelValues(backendLabel, resultLabel).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
