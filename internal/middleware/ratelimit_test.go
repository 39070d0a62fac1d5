package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/cache"
)

// stubLimiter allows the first `allow` calls per IP.
type stubLimiter struct {
	allow int
	err   error
	seen  map[string]int
}

func (s *stubLimiter) CheckAuthRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*cache.RateLimitResult, error) {
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	s.seen[ip]++
	if s.err != nil {
		return &cache.RateLimitResult{Allowed: true}, s.err
	}
	if s.seen[ip] > s.allow {
		return &cache.RateLimitResult{Allowed: false, RetryAfter: 2 * time.Second, ResetAt: time.Now().Add(2 * time.Second)}, nil
	}
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(s.allow - s.seen[ip]), ResetAt: time.Now().Add(time.Second)}, nil
}

func newRateLimited(limiter AuthRateLimiter, enabled bool) http.Handler {
	return RateLimitAuth(RateLimitConfig{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter:           limiter,
		Enabled:           enabled,
		RequestsPerMinute: 30,
		Burst:             2,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitAuth(t *testing.T) {
	limiter := &stubLimiter{allow: 2}
	handler := newRateLimited(limiter, true)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "30" {
			t.Errorf("X-RateLimit-Limit = %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
	req.RemoteAddr = "10.0.0.1:6666"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("Retry-After = %q, want 2", rec.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != CodeRateLimited {
		t.Errorf("code = %q, want %q", body["code"], CodeRateLimited)
	}

	// Port is not part of the identity.
	if limiter.seen["10.0.0.1"] != 3 {
		t.Errorf("calls for 10.0.0.1 = %d, want 3", limiter.seen["10.0.0.1"])
	}
}

func TestRateLimitAuth_RotatingForwardedForIsStillLimited(t *testing.T) {
	limiter := &stubLimiter{allow: 2}
	handler := RealIP(nil)(newRateLimited(limiter, true))

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 18 {
		t.Errorf("429 responses = %d, want 18", limited)
	}
	if len(limiter.seen) != 1 || limiter.seen["10.0.0.1"] != 20 {
		t.Errorf("limiter keys = %v, want only 10.0.0.1", limiter.seen)
	}
}

func TestRateLimitAuth_TrustedProxyKeysOnClient(t *testing.T) {
	limiter := &stubLimiter{allow: 1}
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	handler := RealIP(trusted)(newRateLimited(limiter, true))

	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s: status = %d, want 200", client, rec.Code)
		}
	}

	if limiter.seen["198.51.100.1"] != 1 || limiter.seen["198.51.100.2"] != 1 {
		t.Errorf("limiter keys = %v, want one per forwarded client", limiter.seen)
	}
}

func TestRateLimitAuth_FailsOpen(t *testing.T) {
	handler := newRateLimited(&stubLimiter{err: errors.New("redis down")}, true)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when limiter errors", rec.Code)
	}
}

func TestRateLimitAuth_Disabled(t *testing.T) {
	limiter := &stubLimiter{}
	handler := newRateLimited(limiter, false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(limiter.seen) != 0 {
		t.Error("disabled limiter must not be consulted")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr host", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"remote addr without port", "192.0.2.1", nil, "192.0.2.1"},
		{"forwarded for ignored", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1"},
		{"real ip ignored", "10.0.0.1:1", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
