package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/response"
)

// RateLimitConfig bounds requests per (client IP, route) within a fixed window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Prefix namespaces counters so separate limiters do not share buckets.
	Prefix string
}

// RateLimit returns a middleware enforcing cfg against store. A store error lets the
// request through.
func RateLimit(store RateStore, cfg RateLimitConfig) gin.HandlerFunc {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	return func(c *gin.Context) {
		if store == nil || cfg.Requests <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := prefix + ":" + c.ClientIP() + "|" + c.Request.Method + " " + route

		count, ttl, err := store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > cfg.Requests {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
