package mid

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientLimiterPerClient(t *testing.T) {
	l := NewClientLimiter(1, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("expected burst of 2 to pass")
	}
	if l.Allow("a") {
		t.Fatal("expected third request to be limited")
	}
	if !l.Allow("b") {
		t.Fatal("expected other client to have its own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("expected token after refill")
	}
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	l := NewClientLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * limiterIdle)
	l.Allow("b")

	if _, ok := l.clients["a"]; ok {
		t.Fatal("expected idle client to be swept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewClientLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	if got := clientIP(req); got != "192.168.1.5" {
		t.Fatalf("expected 192.168.1.5, got %q", got)
	}
	req.RemoteAddr = "garbage"
	if got := clientIP(req); got != "garbage" {
		t.Fatalf("expected raw addr, got %q", got)
	}
}
