package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLimiter(t *testing.T, limit int, window time.Duration) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLoginLimiter(client, limit, window, zap.NewNop()), mr
}

func limitedEngine(l *LoginLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/auth/login", l.Handler(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func postLogin(engine *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestLoginLimiter_Allow(t *testing.T) {
	limiter, mr := setupLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.True(t, retryAfter > 0 && retryAfter <= time.Minute)

	// Other clients have their own window.
	allowed, _, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, _, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLoginLimiter_Handler(t *testing.T) {
	limiter, _ := setupLimiter(t, 2, time.Minute)
	engine := limitedEngine(limiter)

	assert.Equal(t, http.StatusOK, postLogin(engine, "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusOK, postLogin(engine, "192.0.2.1:1234").Code)

	w := postLogin(engine, "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusOK, postLogin(engine, "192.0.2.2:1234").Code)
}

func TestLoginLimiter_FailsOpen(t *testing.T) {
	limiter, mr := setupLimiter(t, 1, time.Minute)
	engine := limitedEngine(limiter)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, postLogin(engine, "192.0.2.1:1234").Code)
	}
}

func TestLoginLimiter_NilPassesThrough(t *testing.T) {
	var limiter *LoginLimiter
	engine := limitedEngine(limiter)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, postLogin(engine, "192.0.2.1:1234").Code)
	}
}
