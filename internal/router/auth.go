package router

import (
	"net/http"

	"ecommerce/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// register 注册普通用户。
func register(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		sess, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusCreated, sess)
	}
}

func login(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, sess)
	}
}
