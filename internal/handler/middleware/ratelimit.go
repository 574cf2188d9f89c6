package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tutor-booking/internal/handler/httperr"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded")

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated user, falling back to
// the client IP when no user is set. Buckets idle for longer than IdleTTL are
// dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	clock     clock.Clock
}

func NewRateLimiter(cfg config.RateLimitConfig, clk clock.Clock) *RateLimiter {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: clk.Now(),
		clock:     clk,
	}
}

func (r *RateLimiter) allow(key string) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.sweep(now)
	}

	v, exists := r.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (r *RateLimiter) sweep(now time.Time) {
	for key, v := range r.visitors {
		if now.Sub(v.lastSeen) >= r.idleTTL {
			delete(r.visitors, key)
		}
	}
	r.lastSweep = now
}

// Tracked reports how many buckets are currently held.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			key = userID.String()
		}

		if !r.allow(key) {
			slog.Warn("Rate limit exceeded", "key", key, "path", c.FullPath())
			httperr.AbortWithError(c, http.StatusTooManyRequests, errRateLimited, httperr.KindRateLimited, "Rate limit exceeded. Try again later.", nil)
			return
		}
		c.Next()
	}
}
