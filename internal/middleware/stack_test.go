package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	mw := NewCORS([]string{"https://admin.example.com"})
	handler := mw.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/list", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("allow-origin=%q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/user/list", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin allowed: %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	mw := NewCORS([]string{"*"})
	reached := false
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/user/list", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if reached {
		t.Fatalf("preflight reached the handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("preflight missing allow-methods")
	}
}

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2, zerolog.Nop())
	handler := rl.Handler(okHandler())

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user/list", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if hit("10.0.0.1:1234") != http.StatusOK || hit("10.0.0.1:1234") != http.StatusOK {
		t.Fatalf("burst requests refused")
	}
	if hit("10.0.0.1:1234") != http.StatusTooManyRequests {
		t.Fatalf("third request in the same second passed")
	}
	// A different client has its own budget.
	if hit("10.0.0.2:9999") != http.StatusOK {
		t.Fatalf("unrelated client throttled")
	}
}

func TestTracingSetsHeaderAndKeepsIncomingID(t *testing.T) {
	mw := NewTracing(zerolog.Nop())
	handler := mw.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Fatalf("trace id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Fatalf("incoming trace id replaced: %q", got)
	}
}
