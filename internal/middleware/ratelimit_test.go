package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// =============================================================================
// RateLimiter Tests
// =============================================================================

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(max, window)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Allow_UnderLimit(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Allow("192.168.1.1"); !ok {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_Allow_AtLimit(t *testing.T) {
	rl, now := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		rl.Allow("192.168.1.1")
	}

	*now = now.Add(20 * time.Second)
	ok, wait := rl.Allow("192.168.1.1")
	if ok {
		t.Error("6th request should be denied")
	}
	if wait != 40*time.Second {
		t.Errorf("expected 40s wait, got %v", wait)
	}
}

func TestRateLimiter_Allow_DifferentIPs(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	rl.Allow("192.168.1.1")
	if ok, _ := rl.Allow("192.168.1.1"); ok {
		t.Error("IP 1 should be rate limited")
	}
	if ok, _ := rl.Allow("192.168.1.2"); !ok {
		t.Error("IP 2 should not be rate limited")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl, now := newTestLimiter(1, time.Minute)

	rl.Allow("192.168.1.1")
	*now = now.Add(time.Minute)
	if ok, _ := rl.Allow("192.168.1.1"); !ok {
		t.Error("request should be allowed after the window")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, now := newTestLimiter(3, time.Minute)

	rl.Allow("a")
	*now = now.Add(30 * time.Second)
	rl.Allow("b")
	*now = now.Add(40 * time.Second)

	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if rl.Len() != 1 {
		t.Errorf("expected 1 remaining, got %d", rl.Len())
	}
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)
	mw := NewRateLimitMiddleware(rl, discardLogger())
	h := mw.Limit(okHandler)

	req := httptest.NewRequest("POST", "/api/transcriptions", nil)
	req.RemoteAddr = "10.1.1.1:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON body, got %q", ct)
	}
}

// =============================================================================
// getClientIP Tests
// =============================================================================

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1:1234", "192.168.1.1"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.9"},
		{"x-real-ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1:80", "198.51.100.4"},
		{"no port", nil, "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
