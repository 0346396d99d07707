package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/darkodi/link-shortener/internal/errors"
	"github.com/darkodi/link-shortener/internal/logger"
)

// RateLimiter implements a token bucket per client
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*bucket
	rate     int           // tokens added per interval
	burst    int           // max tokens (bucket size)
	interval time.Duration // how often to add tokens
	idle     time.Duration // buckets unused this long are dropped
	now      func() time.Time
	log      *logger.Logger
}

type bucket struct {
	tokens   int
	lastFill time.Time
	lastSeen time.Time
}

// RateLimiterConfig holds rate limiter settings
type RateLimiterConfig struct {
	Rate     int           // Requests per interval
	Burst    int           // Max burst size
	Interval time.Duration // Token refill interval
	Cleanup  time.Duration // Idle time before a client is forgotten
}

// DefaultRateLimiterConfig returns sensible defaults
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:     10,
		Burst:    20,
		Interval: time.Second,
		Cleanup:  5 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter. Call Run to start forgetting idle clients.
func NewRateLimiter(cfg RateLimiterConfig, log *logger.Logger) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = def.Cleanup
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RateLimiter{
		clients:  make(map[string]*bucket),
		rate:     cfg.Rate,
		burst:    cfg.Burst,
		interval: cfg.Interval,
		idle:     cfg.Cleanup,
		now:      time.Now,
		log:      log,
	}
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	b, exists := rl.clients[key]
	if !exists {
		rl.clients[key] = &bucket{tokens: rl.burst - 1, lastFill: now, lastSeen: now}
		return true
	}
	b.lastSeen = now

	if steps := int(now.Sub(b.lastFill) / rl.interval); steps > 0 {
		b.tokens = min(b.tokens+steps*rl.rate, rl.burst)
		b.lastFill = b.lastFill.Add(time.Duration(steps) * rl.interval)
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Run drops idle buckets until ctx is cancelled
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.log.Debug("rate limiter cleanup", "active_clients", rl.cleanup())
		}
	}
}

func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for key, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	return len(rl.clients)
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			if !rl.Allow(ip) {
				rl.log.Warn("rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"ip", ip,
					"path", r.URL.Path,
				)

				w.Header().Set("Retry-After", "1")
				errors.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
