package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	reqA := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	reqA.Header.Set("X-Real-IP", "10.0.0.1")
	resA := httptest.NewRecorder()
	handler.ServeHTTP(resA, reqA)
	if resA.Code != http.StatusOK {
		t.Fatalf("expected client A to succeed, got %d", resA.Code)
	}

	reqB := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	reqB.Header.Set("X-Real-IP", "10.0.0.2")
	resB := httptest.NewRecorder()
	handler.ServeHTTP(resB, reqB)
	if resB.Code != http.StatusOK {
		t.Fatalf("expected client B to succeed, got %d", resB.Code)
	}
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1})
	handler := limiter.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, res.Code)
		}
	}
}

func TestClientIDForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.7" {
		t.Fatalf("clientID = %q", got)
	}
}
