package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/fintrack/fintrack/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "fintrack_signups_total", "status", snap.Signups)
	writeLabeled(w, "fintrack_signins_total", "status", snap.Signins)

	writeMetric(w, "fintrack_profile_cache_hits_total %d\n", snap.ProfileCacheHits)
	writeMetric(w, "fintrack_profile_cache_misses_total %d\n", snap.ProfileCacheMisses)

	writeMetric(w, "fintrack_accounts_created_total %d\n", snap.AccountsCreated)
	writeMetric(w, "fintrack_accounts_updated_total %d\n", snap.AccountsUpdated)
	writeMetric(w, "fintrack_accounts_deleted_total %d\n", snap.AccountsDeleted)

	writeLabeled(w, "fintrack_gateway_failures_total", "op", snap.UpstreamFailures)
	writeLabeled(w, "fintrack_gateway_duration_seconds_count", "op", snap.UpstreamCallCount)
	for _, op := range sortedKeys(snap.UpstreamCallTotalNs) {
		writeMetric(w, "fintrack_gateway_duration_seconds_sum{op=%q} %.6f\n", op, float64(snap.UpstreamCallTotalNs[op])/1e9)
	}
}

func writeLabeled(w http.ResponseWriter, name, label string, counts map[string]uint64) {
	for _, key := range sortedKeys(counts) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, key, counts[key])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
