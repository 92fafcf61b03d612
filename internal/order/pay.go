package order

import (
	"context"
	"errors"
	"fmt"

	"ecommerce/internal/apperr"
	"ecommerce/internal/auth"
	"ecommerce/internal/inventory"
	"ecommerce/internal/model"
	"ecommerce/internal/notify"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PayResult struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment"`
}

// Pay 待支付 -> 已支付：提交预留库存并写入唯一的支付记录。
// 截止时间在这里独立校验，不依赖超时清理是否已经跑过。
func (s *Service) Pay(ctx context.Context, id auth.Identity, orderID uint) (*PayResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Pay", trace.WithAttributes(
		attribute.Int64("user.id", int64(id.UserID)),
		attribute.Int64("order.id", int64(orderID)),
	))
	defer span.End()

	var res PayResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Order
		err := tx.Preload("Items").Where("id = ? AND user_id = ?", orderID, id.UserID).First(&o).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.OrderNotFound()
			}
			return err
		}
		if o.Status != model.StatusPendingPayment {
			return apperr.InvalidState(string(o.Status))
		}

		now := s.clock.Now()
		if deadline := s.Deadline(o); now.After(deadline) {
			return apperr.DeadlineExpired(deadline)
		}

		if err := inventory.CommitItems(ctx, tx, o.Items); err != nil {
			return err
		}
		if err := transition(tx, &o, model.StatusPaid, now); err != nil {
			return err
		}

		p := model.Payment{
			CreatedAt:     now,
			OrderID:       o.ID,
			TransactionID: newTransactionID(),
			Amount:        o.TotalAmount,
			Status:        model.PaymentSuccess,
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		o.Payment = &p
		res = PayResult{Order: &o, Payment: &p}
		return nil
	})
	if err != nil {
		err = apperr.WrapTx(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info("order paid",
		zap.Uint("order_id", res.Order.ID),
		zap.String("transaction_id", res.Payment.TransactionID),
	)
	s.enqueueConfirmation(ctx, res.Order)
	return &res, nil
}

// enqueueConfirmation 事务已提交，这里的任何失败都只记日志。
func (s *Service) enqueueConfirmation(ctx context.Context, o *model.Order) {
	var u model.User
	if err := s.db.WithContext(ctx).Select("email").First(&u, o.UserID).Error; err != nil {
		s.log.Warn("confirmation skipped: load user", zap.Uint("order_id", o.ID), zap.Error(err))
		return
	}
	job := notify.NewEmailJob(u.Email, "Order Confirmation",
		fmt.Sprintf("Your order #%s has been confirmed. Total amount: $%s", o.OrderNo, FormatAmount(o.TotalAmount)))
	if err := s.sink.Enqueue(job); err != nil {
		s.log.Warn("confirmation not enqueued",
			zap.Uint("order_id", o.ID),
			zap.Error(apperr.Background("notify", err)),
		)
	}
}

// FormatAmount 分 -> "12.34"。
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
