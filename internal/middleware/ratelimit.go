package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jengzang/fog-backend-go/internal/logger"
)

// maxClients bounds the number of clients tracked at once
const maxClients = 4096

// RateLimiter implements a sliding window rate limiter per client. Clients
// idle for a whole window are forgotten.
type RateLimiter struct {
	mu       sync.Mutex
	requests *expirable.LRU[string, []time.Time]
	limit    int           // Maximum requests per window
	window   time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: expirable.NewLRU[string, []time.Time](maxClients, nil, window),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request from the given client is allowed
func (rl *RateLimiter) Allow(client string) bool {
	return rl.allowAt(client, time.Now())
}

func (rl *RateLimiter) allowAt(client string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	times, _ := rl.requests.Get(client)

	// Drop requests that left the window
	valid := times[:0:0]
	for _, t := range times {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		return false
	}

	rl.requests.Add(client, append(valid, now))
	return true
}

// RateLimit middleware limits requests per client IP. A limit of zero or
// less disables it.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !limiter.Allow(ip) {
			logger.S().Warnf("[RateLimit] %s exceeded %d requests per %s", ip, limit, window)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
