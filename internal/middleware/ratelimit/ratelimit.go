// Package ratelimit throttles mutating requests per client.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter is a fixed-window counter per key (usually the client IP).
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
	hits    int64
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{
		clients: make(map[string]*window),
		limit:   config.RequestsPerMinute,
		window:  time.Minute,
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[key] = &window{start: now, requests: 1}
		return true
	}

	w.requests++
	if w.requests > rl.limit {
		atomic.AddInt64(&rl.hits, 1)
		return false
	}
	return true
}

// retryAfter returns the seconds until key's window resets.
func (rl *Limiter) retryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	w, ok := rl.clients[key]
	if !ok {
		return 0
	}
	secs := int(rl.window.Seconds() - rl.now().Sub(w.start).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Sweep removes windows that ended more than one window ago.
func (rl *Limiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	removed := 0
	for key, w := range rl.clients {
		if w.start.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps stale entries every interval until ctx is cancelled.
func (rl *Limiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-ctx.Done():
			return nil
		}
	}
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clients := int64(len(rl.clients))
	rl.mu.Unlock()
	return Metrics{TotalHits: atomic.LoadInt64(&rl.hits), ClientCount: clients}
}

// Middleware limits requests whose method is not safe (GET, HEAD, OPTIONS).
// onLimit renders the rejection; when nil a plain 429 is written.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := extractKey(r)
			if !rl.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(key)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
