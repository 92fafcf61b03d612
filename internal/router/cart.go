package router

import (
	"net/http"

	"ecommerce/internal/cart"
	"ecommerce/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getCart(svc *cart.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.IdentityFrom(c)
		crt, err := svc.Get(c.Request.Context(), id.UserID)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, crt)
	}
}

func addCartItem(svc *cart.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.AddItemInput
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		id, _ := middleware.IdentityFrom(c)
		crt, err := svc.AddItem(c.Request.Context(), id.UserID, req)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, crt)
	}
}

func removeCartItem(svc *cart.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := paramID(c, "product_id")
		if err != nil {
			fail(c, log, err)
			return
		}
		id, _ := middleware.IdentityFrom(c)
		crt, err := svc.RemoveItem(c.Request.Context(), id.UserID, productID)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, crt)
	}
}
