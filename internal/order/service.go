// Package order 实现订单生命周期：下单（预留库存）、支付（提交库存）、管理员改状态与查询。
//
// 每个会改库存的操作都在一个事务里同时改订单状态和库存计数器；
// 状态更新带 WHERE status = ? 条件，与超时清理并发时只有一方能成功。
package order

import (
	"fmt"
	"strings"
	"time"

	"ecommerce/internal/clock"
	"ecommerce/internal/model"
	"ecommerce/internal/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPaymentWindow 下单后允许支付的时长。
const DefaultPaymentWindow = 15 * time.Minute

type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	sink   notify.Enqueuer
	log    *zap.Logger
	window time.Duration
	tracer trace.Tracer
}

type Option func(*Service)

func WithPaymentWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

func NewService(db *gorm.DB, clk clock.Clock, sink notify.Enqueuer, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		clock:  clk,
		sink:   sink,
		log:    log.With(zap.String("component", "order")),
		window: DefaultPaymentWindow,
		tracer: otel.Tracer("ecommerce/order"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deadline 订单的支付截止时间。
func (s *Service) Deadline(o model.Order) time.Time {
	return o.CreatedAt.Add(s.window)
}

func (s *Service) PaymentWindow() time.Duration { return s.window }

func newOrderNo(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD%s%s", now.Format("20060102"), id[:12])
}

func newTransactionID() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
