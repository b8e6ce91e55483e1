// internal/api/ratelimit.go
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the per-IP limiter table; it is reset when exceeded.
const maxLimiters = 1000

// RateLimit configures per-IP request limiting. Zero disables it.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

type limiterTable struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      RateLimit
}

func (t *limiterTable) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.limiters) >= maxLimiters {
		t.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := t.limiters[ip]
	if !ok {
		burst := t.cfg.Burst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), burst)
		t.limiters[ip] = l
	}
	return l
}

// RateLimiter rejects clients exceeding cfg with 429.
func RateLimiter(cfg RateLimit) gin.HandlerFunc {
	table := &limiterTable{limiters: make(map[string]*rate.Limiter), cfg: cfg}
	return func(c *gin.Context) {
		limiter := table.get(c.ClientIP())
		if !limiter.Allow() {
			r := limiter.Reserve()
			retryAfter := r.DelayFrom(time.Now()).Seconds()
			r.Cancel()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
