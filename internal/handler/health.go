package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// readinessTimeout bounds all dependency probes of one /readyz call.
const readinessTimeout = 5 * time.Second

// Readiness check results.
const (
	checkOK            = "ok"
	checkUnavailable   = "unavailable"
	checkNotConfigured = "not configured"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps   map[string]HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler probing PostgreSQL and Redis.
// A nil checker is reported as not configured and does not fail readiness.
func NewHealthHandler(db, cache HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		deps:   map[string]HealthChecker{"postgres": db, "redis": cache},
		logger: logger,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running; dependencies are not checked.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings every configured dependency in parallel and returns 200 only
// if all of them answer. Failure causes are logged, not returned.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(h.deps))
	)
	for name, dep := range h.deps {
		if dep == nil {
			checks[name] = checkNotConfigured
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := checkOK
			if err := dep.Ping(ctx); err != nil {
				h.logger.Warn("readiness check failed", "dependency", name, "error", err)
				result = checkUnavailable
			}
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := HealthResponse{Status: "ok", Checks: checks}
	status := http.StatusOK
	for _, result := range checks {
		if result == checkUnavailable {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, resp)
}
