package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the client's real IP address, preferring Cloudflare's
// CF-Connecting-IP header, then X-Forwarded-For, and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ConsumeResult is the counter state after a Consume call.
type ConsumeResult struct {
	Count   int
	ResetAt time.Time
}

// RateLimiter is a sliding-window counter service keyed by caller-chosen
// strings (typically client IPs). The in-memory implementation below suits a
// single-instance deployment; a shared store would be needed behind this
// interface to scale horizontally.
type RateLimiter interface {
	// Consume counts one request against key and reports whether it stayed
	// within limit for the window.
	Consume(key string, limit int, window time.Duration) (ConsumeResult, bool)
	// Reset forgets the counter for key (e.g. after a successful login).
	Reset(key string)
}

type entry struct {
	count    int
	windowAt time.Time
}

// MemoryLimiter is the in-process RateLimiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*entry)}
}

func (rl *MemoryLimiter) Consume(key string, limit int, window time.Duration) (ConsumeResult, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e, ok := rl.entries[key]
	if !ok || now.After(e.windowAt) {
		e = &entry{count: 1, windowAt: now.Add(window)}
		rl.entries[key] = e
		return ConsumeResult{Count: 1, ResetAt: e.windowAt}, true
	}
	e.count++
	return ConsumeResult{Count: e.count, ResetAt: e.windowAt}, e.count <= limit
}

func (rl *MemoryLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// Cleanup removes expired entries.
func (rl *MemoryLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, e := range rl.entries {
		if now.After(e.windowAt) {
			delete(rl.entries, key)
		}
	}
}

// RateLimit returns middleware that rate-limits requests by a key function.
// Exhaustion answers 429 without revealing the remaining quota.
func RateLimit(limiter RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := limiter.Consume(keyFunc(r), limit, window); !ok {
				http.Error(w, "Muitas requisições. Tente novamente em alguns minutos.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
