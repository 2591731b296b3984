package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LoginLimiter is a fixed-window attempt counter shared through Redis. A nil
// *LoginLimiter allows everything.
type LoginLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger
}

func NewLoginLimiter(redisClient *redis.Client, limit int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		prefix: "ratelimit:login",
		logger: logger,
	}
}

// Allow counts one attempt for key and reports whether it is within the
// limit, plus the time left in the current window.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		// fail open
		return true, 0, fmt.Errorf("redis error: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// First hit of the window, or a key left without expiry.
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, 0, fmt.Errorf("redis error: %w", err)
		}
		remaining = l.window
	}

	return incr.Val() <= int64(l.limit), remaining, nil
}

// Handler rejects requests over the limit with 429, keyed by client IP.
func (l *LoginLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		allowed, retryAfter, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			l.logger.Warn("Login rate limiter unavailable, allowing request", zap.Error(err))
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many login attempts",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
