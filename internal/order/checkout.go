package order

import (
	"context"
	"errors"
	"math"
	"sort"

	"ecommerce/internal/apperr"
	"ecommerce/internal/auth"
	"ecommerce/internal/inventory"
	"ecommerce/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Checkout 把购物车转成待支付订单。任何一行预留失败，整单回滚，库存不变。
func (s *Service) Checkout(ctx context.Context, id auth.Identity) (*model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.Int64("user.id", int64(id.UserID))))
	defer span.End()

	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Preload("Items").Where("user_id = ?", id.UserID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.EmptyCart()
			}
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.EmptyCart()
		}

		// 固定加锁顺序，多行下单之间不会互相等待成环。
		lines := append([]model.CartItem(nil), cart.Items...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		items := make([]model.OrderItem, 0, len(lines))
		var total int64
		for _, line := range lines {
			var p model.Product
			if err := tx.First(&p, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.ProductNotFound()
				}
				return err
			}
			lineTotal, ok := mulAmount(p.Price, line.Quantity)
			if ok {
				total, ok = addAmount(total, lineTotal)
			}
			if !ok {
				return apperr.Validation("order total for %s exceeds the supported amount", p.Name)
			}
			if err := inventory.Reserve(ctx, tx, p.ID, line.Quantity); err != nil {
				return err
			}
			items = append(items, model.OrderItem{
				ProductID:       p.ID,
				ProductName:     p.Name,
				Quantity:        line.Quantity,
				PriceAtPurchase: p.Price,
			})
		}

		now := s.clock.Now()
		order = model.Order{
			CreatedAt:   now,
			UpdatedAt:   now,
			OrderNo:     newOrderNo(now),
			UserID:      id.UserID,
			TotalAmount: total,
			Status:      model.StatusPendingPayment,
			Items:       items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		// 清空购物车，购物车本身保留。
		return tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error
	})
	if err != nil {
		err = apperr.WrapTx(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))
	s.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Uint("user_id", id.UserID),
		zap.Int64("total_amount", order.TotalAmount),
	)
	return &order, nil
}

// mulAmount 与 addAmount 只接受非负金额，溢出时 ok 为 false。
func mulAmount(price, qty int64) (int64, bool) {
	if price < 0 || qty < 0 {
		return 0, false
	}
	if qty != 0 && price > math.MaxInt64/qty {
		return 0, false
	}
	return price * qty, true
}

func addAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}
