package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const visitorIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerMinute converts a requests-per-minute budget into a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// RateLimiter limits requests per client IP. Visitors idle for longer than
// ten minutes are forgotten.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	visitors := make(map[string]*visitor)
	var mu sync.Mutex
	lastSweep := time.Now()

	getVisitor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastSweep) > visitorIdle {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > visitorIdle {
					delete(visitors, k)
				}
			}
			lastSweep = now
		}

		v, exists := visitors[ip]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(r, b)}
			visitors[ip] = v
		}
		v.lastSeen = now
		return v.limiter
	}

	return func(c *gin.Context) {
		if !getVisitor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
