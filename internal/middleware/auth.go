package middleware

import (
	"context"
	"net/http"
	"strings"

	"ecommerce/internal/apperr"
	"ecommerce/internal/auth"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Authenticator 把 Bearer 令牌解析为调用方身份。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// Authenticate 校验 Authorization: Bearer <token>，成功后把 Identity 放进 gin.Context。
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "missing bearer token"})
			return
		}
		id, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abortAuth(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole 角色不符返回 403。
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "not authenticated"})
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "msg": "insufficient permissions"})
	}
}

func abortAuth(c *gin.Context, err error) {
	e, _ := apperr.As(err)
	switch {
	case e != nil && e.Code == apperr.CodeForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "msg": e.Message})
	case e != nil && e.Kind == apperr.KindTransactionAbort:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "internal error"})
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": err.Error()})
	}
}

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
