package metrics

import (
	"math"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestRecorderObserveResize(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveResize("webp", "success", "native", false, 250*time.Millisecond)

	families := gather(t, rec, "imgctrl_resize_requests_total", "imgctrl_resize_request_duration_seconds")

	counter := findMetric(t, families["imgctrl_resize_requests_total"], map[string]string{
		"encoding":   "webp",
		"outcome":    "success",
		"backend":    "native",
		"from_cache": "false",
	})
	if counter.GetCounter() == nil {
		t.Fatalf("expected counter metric for resize requests")
	}
	if got := counter.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected counter value 1, got %v", got)
	}

	histMetric := findMetric(t, families["imgctrl_resize_request_duration_seconds"], map[string]string{
		"encoding": "webp",
		"outcome":  "success",
	})
	hist := histMetric.GetHistogram()
	if hist == nil {
		t.Fatalf("expected histogram metric for resize latency")
	}
	if hist.GetSampleCount() != 1 {
		t.Fatalf("expected histogram count 1, got %d", hist.GetSampleCount())
	}
	want := 0.25
	if diff := math.Abs(hist.GetSampleSum() - want); diff > 0.001 {
		t.Fatalf("expected histogram sum near %v, got %v", want, hist.GetSampleSum())
	}
}

func TestRecorderObserveResizeFromCache(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveResize("jpeg", "success", "", true, time.Millisecond)

	families := gather(t, rec, "imgctrl_resize_requests_total")
	counter := findMetric(t, families["imgctrl_resize_requests_total"], map[string]string{
		"encoding":   "jpeg",
		"backend":    "none",
		"from_cache": "true",
	})
	if got := counter.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected counter value 1, got %v", got)
	}
}

func TestRecorderObserveCacheOperations(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveCacheLookup(CacheLookupHit)
	rec.ObserveCacheLookup(CacheLookupStale)
	rec.ObserveCacheStore(CacheStoreStored)

	families := gather(t, rec, "imgctrl_cache_operations_total")

	lookupMetric := findMetric(t, families["imgctrl_cache_operations_total"], map[string]string{
		"operation": string(CacheOperationLookup),
		"result":    string(CacheLookupHit),
	})
	if got := lookupMetric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected lookup counter 1, got %v", got)
	}

	staleMetric := findMetric(t, families["imgctrl_cache_operations_total"], map[string]string{
		"operation": string(CacheOperationLookup),
		"result":    string(CacheLookupStale),
	})
	if got := staleMetric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected stale counter 1, got %v", got)
	}

	storeMetric := findMetric(t, families["imgctrl_cache_operations_total"], map[string]string{
		"operation": string(CacheOperationStore),
		"result":    string(CacheStoreStored),
	})
	if got := storeMetric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected store counter 1, got %v", got)
	}
}

func TestRecorderObserveBackend(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveBackend("imaginary", BackendFailure, 100*time.Millisecond)
	rec.ObserveBackend("basic", BackendSuccess, 50*time.Millisecond)

	families := gather(t, rec, "imgctrl_backend_attempts_total", "imgctrl_backend_attempt_duration_seconds")

	failed := findMetric(t, families["imgctrl_backend_attempts_total"], map[string]string{
		"backend": "imaginary",
		"result":  string(BackendFailure),
	})
	if got := failed.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected failure counter 1, got %v", got)
	}

	succeeded := findMetric(t, families["imgctrl_backend_attempts_total"], map[string]string{
		"backend": "basic",
		"result":  string(BackendSuccess),
	})
	if got := succeeded.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected success counter 1, got %v", got)
	}

	latencyMetric := findMetric(t, families["imgctrl_backend_attempt_duration_seconds"], map[string]string{
		"backend": "basic",
		"result":  string(BackendSuccess),
	})
	hist := latencyMetric.GetHistogram()
	if hist == nil {
		t.Fatalf("expected histogram metric for backend latency")
	}
	if hist.GetSampleCount() != 1 {
		t.Fatalf("expected histogram count 1, got %d", hist.GetSampleCount())
	}
}

func TestRecorderHandler(t *testing.T) {
	rec := NewRecorder(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	rec.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200 response, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected response body")
	}
}

func gather(t *testing.T, rec *Recorder, names ...string) map[string][]*dto.Metric {
	t.Helper()
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	families, err := rec.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	collected := make(map[string][]*dto.Metric, len(names))
	for _, mf := range families {
		if !wanted[mf.GetName()] {
			continue
		}
		collected[mf.GetName()] = append(collected[mf.GetName()], mf.GetMetric()...)
	}
	for _, name := range names {
		if len(collected[name]) == 0 {
			t.Fatalf("metric %q not collected", name)
		}
	}
	return collected
}

func findMetric(t *testing.T, metrics []*dto.Metric, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, metric := range metrics {
		if matchLabels(metric, labels) {
			return metric
		}
	}
	t.Fatalf("metric with labels %v not found", labels)
	return nil
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) < len(labels) {
		return false
	}
	for key, expected := range labels {
		found := false
		for _, label := range metric.GetLabel() {
			if label.GetName() == key && label.GetValue() == expected {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
