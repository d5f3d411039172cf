package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BerndBr/taskana/pkg/env"
	"github.com/BerndBr/taskana/pkg/lifecycle"
)

// RateLimitConfig holds per-client request rate settings.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	IdleTTL           string  `toml:"idle_ttl"`
}

// RateLimitEnv maps rate limit config fields to environment variable names.
type RateLimitEnv struct {
	RequestsPerSecond string
	Burst             string
	IdleTTL           string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RateLimitConfig) Finalize(vars *RateLimitEnv) error {
	c.loadDefaults()
	if vars != nil {
		c.loadEnv(vars)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RateLimitConfig) Merge(overlay *RateLimitConfig) {
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.IdleTTL != "" {
		c.IdleTTL = overlay.IdleTTL
	}
}

// IdleTTLDuration returns IdleTTL as a time.Duration.
func (c *RateLimitConfig) IdleTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTTL)
	return d
}

func (c *RateLimitConfig) loadDefaults() {
	if c.Burst == 0 {
		c.Burst = 20
	}
	if c.IdleTTL == "" {
		c.IdleTTL = "3m"
	}
}

func (c *RateLimitConfig) loadEnv(vars *RateLimitEnv) {
	env.Float(vars.RequestsPerSecond, &c.RequestsPerSecond)
	env.Int(vars.Burst, &c.Burst)
	env.String(vars.IdleTTL, &c.IdleTTL)
}

func (c *RateLimitConfig) validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be positive")
	}
	ttl, err := time.ParseDuration(c.IdleTTL)
	if err != nil {
		return fmt.Errorf("invalid idle_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("idle_ttl must be positive, got %s", c.IdleTTL)
	}
	return nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter from cfg.
func NewRateLimiter(cfg *RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		idleTTL:  cfg.IdleTTLDuration(),
		now:      time.Now,
	}
}

// Allow reports whether a request from addr may proceed.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep drops visitors idle for longer than the configured TTL.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for addr, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, addr)
			removed++
		}
	}
	return removed
}

// Start sweeps idle visitors in the background until the coordinator shuts down.
func (rl *RateLimiter) Start(lc *lifecycle.Coordinator) {
	if rl.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(rl.idleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				rl.Sweep()
			}
		}
	}()
}

// Middleware rejects requests over the per-client rate with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit == 0 {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.Allow(clientAddr(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
