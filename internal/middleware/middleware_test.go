package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecommerce/internal/apperr"
	"ecommerce/internal/auth"
	"ecommerce/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type tokenTable map[string]auth.Identity

func (t tokenTable) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	switch token {
	case "disabled":
		return auth.Identity{}, apperr.Forbidden("account is disabled")
	case "broken":
		return auth.Identity{}, apperr.Abort(context.DeadlineExceeded)
	}
	id, ok := t[token]
	if !ok {
		return auth.Identity{}, apperr.Unauthorized("invalid token")
	}
	return id, nil
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	tokens := tokenTable{
		"u": {UserID: 1, Role: model.RoleUser},
		"a": {UserID: 2, Role: model.RoleAdmin},
	}
	r := gin.New()
	r.GET("/me", Authenticate(tokens), func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID})
	})
	r.GET("/admin", Authenticate(tokens), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "u").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "nope").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", "disabled").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/me", "broken").Code)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", "u").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/admin", "a").Code)
}

func TestRedisRateLimitPerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := tokenTable{
		"u1": {UserID: 1, Role: model.RoleUser},
		"u2": {UserID: 2, Role: model.RoleUser},
	}
	r := gin.New()
	r.POST("/pay", Authenticate(tokens), RedisRateLimit(rdb, "pay", 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/pay", "u1").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/pay", "u1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/pay", "u1").Code)
	// 限流按用户隔离。
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/pay", "u2").Code)

	assert.True(t, mr.Exists("ecommerce:rate_limit:pay:user:1"))
}

func TestRedisRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	r := gin.New()
	r.POST("/x", RedisRateLimit(rdb, "x", 1, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/x", "").Code)
	}

	nilLimited := gin.New()
	nilLimited.POST("/x", RedisRateLimit(nil, "x", 1, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, do(nilLimited, http.MethodPost, "/x", "").Code)
}

func TestZapLoggerAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop()), ZapRecovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rid-1", w.Header().Get(RequestIDHeader))
}
