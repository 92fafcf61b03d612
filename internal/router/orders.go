package router

import (
	"net/http"
	"time"

	"ecommerce/internal/middleware"
	"ecommerce/internal/model"
	"ecommerce/internal/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// orderView 订单 + 支付截止时间 + 可读金额。
type orderView struct {
	*model.Order
	PaymentDeadline time.Time `json:"payment_deadline"`
	TotalDisplay    string    `json:"total_display"`
}

func viewOf(svc *order.Service, o *model.Order) orderView {
	return orderView{Order: o, PaymentDeadline: svc.Deadline(*o), TotalDisplay: order.FormatAmount(o.TotalAmount)}
}

// checkout 购物车 -> 待支付订单（库存预留）。
func checkout(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.IdentityFrom(c)
		o, err := svc.Checkout(c.Request.Context(), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusCreated, viewOf(svc, o))
	}
}

// pay 模拟支付：校验截止时间、提交库存、生成支付记录。
func pay(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		id, _ := middleware.IdentityFrom(c)
		res, err := svc.Pay(c.Request.Context(), id, orderID)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"order": viewOf(svc, res.Order), "payment": res.Payment})
	}
}

func listOrders(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q order.ListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			fail(c, log, bindError(err))
			return
		}
		id, _ := middleware.IdentityFrom(c)
		page, err := svc.List(c.Request.Context(), id, q)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, page)
	}
}

func getOrder(svc *order.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		id, _ := middleware.IdentityFrom(c)
		o, err := svc.Get(c.Request.Context(), id, orderID)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"order": viewOf(svc, o), "payment": o.Payment})
	}
}
