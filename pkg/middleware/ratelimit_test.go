package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute})

	for i := 0; i < 3; i++ {
		allowed, remaining, _ := l.Allow("ip:1.2.3.4")
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if remaining != 3-(i+1) {
			t.Errorf("request %d remaining = %d, want %d", i+1, remaining, 3-(i+1))
		}
	}

	allowed, remaining, retryAfter := l.Allow("ip:1.2.3.4")
	if allowed {
		t.Error("4th request allowed, want denied")
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}
}

func TestSlidingWindowLimiter_PerKeyIsolation(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})

	if allowed, _, _ := l.Allow("ip:1.1.1.1"); !allowed {
		t.Fatal("first key first request denied")
	}
	if allowed, _, _ := l.Allow("ip:1.1.1.1"); allowed {
		t.Error("first key second request allowed, want denied")
	}
	if allowed, _, _ := l.Allow("ip:2.2.2.2"); !allowed {
		t.Error("second key blocked by first key's budget")
	}
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})

	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("ip:1.2.3.4")
	l.Allow("ip:1.2.3.4")
	if allowed, _, _ := l.Allow("ip:1.2.3.4"); allowed {
		t.Fatal("over-budget request allowed")
	}

	// After the window passes the old requests age out.
	l.now = func() time.Time { return now.Add(61 * time.Second) }
	if allowed, _, _ := l.Allow("ip:1.2.3.4"); !allowed {
		t.Error("request denied after window elapsed")
	}
}

func TestSlidingWindowLimiter_Cleanup(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute})

	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("ip:stale")
	l.now = func() time.Time { return now.Add(30 * time.Second) }
	l.Allow("ip:fresh")

	l.now = func() time.Time { return now.Add(70 * time.Second) }
	if removed := l.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	m := NewRateLimitMiddleware(NewSlidingWindowLimiter(cfg), cfg, nil, "login")

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("9.9.9.9"); rec.Code != http.StatusOK {
		t.Fatalf("1st request status = %d, want 200", rec.Code)
	}
	if rec := do("9.9.9.9"); rec.Code != http.StatusOK {
		t.Fatalf("2nd request status = %d, want 200", rec.Code)
	}

	rec := do("9.9.9.9")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("3rd request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}

	// Different client IP is unaffected.
	if rec := do("8.8.8.8"); rec.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", rec.Code)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, "test:rl")

	if allowed, remaining, _ := l.Allow("ip:1.2.3.4"); !allowed || remaining != 1 {
		t.Fatalf("1st Allow = (%v, %d), want (true, 1)", allowed, remaining)
	}
	if allowed, _, _ := l.Allow("ip:1.2.3.4"); !allowed {
		t.Fatal("2nd request denied, want allowed")
	}
	if allowed, _, _ := l.Allow("ip:1.2.3.4"); allowed {
		t.Fatal("3rd request allowed, want denied")
	}

	mr.FastForward(61 * time.Second)
	if allowed, _, _ := l.Allow("ip:1.2.3.4"); !allowed {
		t.Error("request denied after window expired")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "test:rl")
	mr.Close()

	if allowed, _, _ := l.Allow("ip:1.2.3.4"); !allowed {
		t.Error("request denied while Redis is down, want fail open")
	}
}
