package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
)

// RateLimitConfig tunes the per-client limiter.
type RateLimitConfig struct {
	RPS   rate.Limit
	Burst int
	// IdleTTL is how long an idle client's limiter survives before the
	// sweeper drops it.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig allows 10 requests a second with a burst of 20.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RPS: 10, Burst: 20, IdleTTL: 3 * time.Minute}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	config  RateLimitConfig
	done    chan struct{}
}

// NewRateLimiter starts the limiter and its idle-entry sweeper.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RPS <= 0 {
		cfg = DefaultRateLimitConfig()
	}
	rl := &RateLimiter{
		clients: make(map[string]*client),
		config:  cfg,
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Close stops the sweeper goroutine.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.IdleTTL)
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if c.lastSeen.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.config.RPS, rl.config.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Middleware enforces the per-IP limit, answering 429 when exceeded.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip) {
			respond.Error(w, http.StatusTooManyRequests,
				authcore.RequestIDFromContext(r.Context()),
				"rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
