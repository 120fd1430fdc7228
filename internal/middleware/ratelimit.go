package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"github.com/smartdoorlock/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	DefaultRateLimit = 20
	rateLimitWindow  = time.Second
)

// RateLimit returns a middleware that allows at most perSecond requests per
// client IP in each one-second window, counted in Redis so the budget is
// shared across instances. Redis failures let the request through.
func RateLimit(rdb *redis.Client, perSecond int, log *zap.Logger) gin.HandlerFunc {
	if perSecond <= 0 {
		perSecond = DefaultRateLimit
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("doorlock:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			if log != nil {
				log.Warn("rate limit counter unavailable", zap.Error(err))
			}
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > int64(perSecond) {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", "1")
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
