package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

// IPRateLimiter keeps one token bucket per client key.
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewIPRateLimiter allows r requests per second with burst b per key.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{limiters: make(map[string]*rate.Limiter), r: r, b: b}
}

// Limiter returns the bucket of key, creating it on first use.
func (i *IPRateLimiter) Limiter(key string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limiters[key] = limiter
	}
	return limiter
}

// RateLimitByIP throttles requests per client IP.
func RateLimitByIP(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Limiter(c.ClientIP()).Allow() {
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many requests from this address"))
			c.Abort()
			return
		}
		c.Next()
	}
}
