package router

import (
	"net/http"

	"ecommerce/internal/model"
	"ecommerce/internal/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func listAllOrders(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q order.ListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			fail(c, log, bindError(err))
			return
		}
		page, err := svc.ListAll(c.Request.Context(), q)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, page)
	}
}

// updateOrderStatus 管理员发货 / 签收 / 取消。
func updateOrderStatus(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		var req struct {
			Status model.OrderStatus `json:"status" binding:"required,oneof=SHIPPED DELIVERED CANCELLED"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), orderID, req.Status)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, viewOf(svc, o))
	}
}
