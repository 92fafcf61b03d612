package order

import (
	"context"
	"errors"
	"time"

	"ecommerce/internal/apperr"
	"ecommerce/internal/inventory"
	"ecommerce/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// transition 条件更新：只有状态仍是 o.Status 时才生效。
// 影响行数为 0 说明并发事务抢先改了状态，重读后报告当前状态。
func transition(tx *gorm.DB, o *model.Order, to model.OrderStatus, now time.Time) error {
	res := tx.Model(&model.Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cur model.Order
		if err := tx.Select("status").First(&cur, o.ID).Error; err != nil {
			return err
		}
		return apperr.InvalidState(string(cur.Status))
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// UpdateStatus 管理员改状态：只接受发货、签收、取消。
// 取消一张待支付订单时同一事务内释放预留库存。
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, target model.OrderStatus) (*model.Order, error) {
	switch target {
	case model.StatusShipped, model.StatusDelivered, model.StatusCancelled:
	default:
		return nil, apperr.Validation("status must be one of SHIPPED, DELIVERED, CANCELLED")
	}

	var o model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.OrderNotFound()
			}
			return err
		}
		if o.Status == model.StatusCancelled {
			return apperr.InvalidState(string(o.Status))
		}
		if !model.CanTransition(o.Status, target) {
			return apperr.IllegalTransition(string(o.Status), string(target))
		}

		from := o.Status
		if err := transition(tx, &o, target, s.clock.Now()); err != nil {
			return err
		}
		if from == model.StatusPendingPayment && target == model.StatusCancelled {
			return inventory.ReleaseItems(ctx, tx, o.Items)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.WrapTx(err)
	}

	s.log.Info("order status updated", zap.Uint("order_id", o.ID), zap.String("status", string(o.Status)))
	return &o, nil
}
