package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc derives the limiter identifier from a request.
type KeyFunc func(c *gin.Context) string

// ClientKey identifies callers by API key when present, otherwise by IP.
func ClientKey(c *gin.Context) string {
	if apiKey := c.GetHeader("x-api-key"); apiKey != "" {
		return "key:" + apiKey[:min(20, len(apiKey))]
	}
	return c.ClientIP()
}

// Middleware rejects requests over limitType with 429 and a Retry-After header.
func (l *Limiter) Middleware(limitType string, keyFunc KeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	return func(c *gin.Context) {
		res := l.CheckLimit(keyFunc(c), limitType)
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": res.RetryAfter,
			})
			return
		}
		c.Next()
	}
}
