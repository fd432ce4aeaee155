package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds one token bucket per client IP. Idle buckets are swept
// on the request path, at most once per limiterSweepEvery.
type ipLimiters struct {
	mu        sync.Mutex
	r         rate.Limit
	b         int
	byIP      map[string]*ipLimiter
	lastSweep time.Time
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		cutoff := now.Add(-limiterIdleAfter)
		for k, v := range l.byIP {
			if v.lastSeen.Before(cutoff) {
				delete(l.byIP, k)
			}
		}
		l.lastSweep = now
	}
	il, ok := l.byIP[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.byIP[ip] = il
	}
	il.lastSeen = now
	return il.limiter
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	limiters := &ipLimiters{r: r, b: b, byIP: make(map[string]*ipLimiter), lastSweep: time.Now()}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
