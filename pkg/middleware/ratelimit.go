package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/suenolabs/sueno-api/pkg/httputil"
	"github.com/suenolabs/sueno-api/pkg/observability"
)

// RateLimitConfig defines a per-client request budget for one route.
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// Route budgets for the public authentication endpoints. Login gets a
// tighter budget than registration because it is the credential-stuffing
// target; the reset flow is tightest because each request can send mail.
func LoginRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}
}

func RegisterRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}
}

func PasswordResetRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
}

// Limiter decides whether one more request fits a client's budget.
type Limiter interface {
	// Allow records an attempt for the key and reports whether it is
	// within budget, how many requests remain, and when the window resets.
	Allow(key string) (allowed bool, remaining int, retryAfter time.Duration)
}

// SlidingWindowLimiter is an in-memory Limiter that keeps the timestamps
// of recent requests per key and counts those inside the window. Exact,
// at the cost of O(budget) memory per active client.
type SlidingWindowLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewSlidingWindowLimiter creates an in-memory sliding window limiter.
func NewSlidingWindowLimiter(config RateLimitConfig) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		config:  config,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(key string) (bool, int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.config.WindowDuration)

	recent := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.config.RequestsPerWindow {
		l.windows[key] = recent
		retryAfter := recent[0].Add(l.config.WindowDuration).Sub(now)
		return false, 0, retryAfter
	}

	recent = append(recent, now)
	l.windows[key] = recent
	return true, l.config.RequestsPerWindow - len(recent), l.config.WindowDuration
}

// Cleanup removes keys whose requests have all aged out of the window.
// Should be called periodically.
func (l *SlidingWindowLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.config.WindowDuration)
	removed := 0
	for key, times := range l.windows {
		stale := true
		for _, ts := range times {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// RateLimitMiddleware enforces a per-client-IP budget on the route it
// wraps. Each wrapped route gets its own limiter, so budgets on different
// routes do not interfere.
type RateLimitMiddleware struct {
	limiter Limiter
	config  RateLimitConfig
	metrics *observability.Metrics
	route   string
}

// NewRateLimitMiddleware creates a rate limit middleware for one route.
// metrics may be nil.
func NewRateLimitMiddleware(limiter Limiter, config RateLimitConfig, metrics *observability.Metrics, route string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		config:  config,
		metrics: metrics,
		route:   route,
	}
}

// Handler wraps an HTTP handler with rate limiting.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + httputil.ClientIP(r)

		allowed, remaining, retryAfter := m.limiter.Allow(key)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitedTotal.WithLabelValues(m.route).Inc()
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			httputil.WriteTooManyRequests(w, "too many requests, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}
