// Package reaper 定期取消超过支付期限仍未支付的订单，并把预留库存还回可售。
package reaper

import (
	"context"
	"sync/atomic"
	"time"

	"ecommerce/internal/apperr"
	"ecommerce/internal/clock"
	"ecommerce/internal/inventory"
	"ecommerce/internal/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultInterval  = 60 * time.Second
	DefaultWindow    = 15 * time.Minute
	DefaultBatchSize = 100
)

// Locker 多实例部署时保证同一时刻只有一个实例在清理。
// 拿不到锁返回 ok=false；release 由调用方在清理结束后执行。
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type SweepResult struct {
	Cancelled int
	Skipped   int
	Failed    int
}

type Reaper struct {
	db        *gorm.DB
	clock     clock.Clock
	log       *zap.Logger
	interval  time.Duration
	window    time.Duration
	batchSize int
	locker    Locker
	tracer    trace.Tracer

	running atomic.Bool
}

type Option func(*Reaper)

func WithInterval(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.window = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Reaper) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLocker(l Locker) Option {
	return func(r *Reaper) { r.locker = l }
}

func New(db *gorm.DB, clk clock.Clock, log *zap.Logger, opts ...Option) *Reaper {
	r := &Reaper{
		db:        db,
		clock:     clk,
		log:       log.With(zap.String("component", "reaper")),
		interval:  DefaultInterval,
		window:    DefaultWindow,
		batchSize: DefaultBatchSize,
		tracer:    otel.Tracer("ecommerce/reaper"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 按固定间隔清理，直到 ctx 取消。单 goroutine 执行，两轮之间不会重叠。
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reaper started", zap.Duration("interval", r.interval), zap.Duration("window", r.window))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("sweep failed", zap.Error(apperr.Background("reaper", err)))
			}
		}
	}
}

// Sweep 执行一轮清理。每张订单一个事务，单张失败只记日志，不影响其他订单。
// 上一轮还没结束时直接返回空结果。
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn("previous sweep still running, skip")
		return res, nil
	}
	defer r.running.Store(false)

	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx)
		if err != nil {
			return res, err
		}
		if !ok {
			r.log.Debug("reaper lock held elsewhere, skip")
			return res, nil
		}
		defer release()
	}

	ctx, span := r.tracer.Start(ctx, "reaper.Sweep")
	defer span.End()

	cutoff := r.clock.Now().Add(-r.window)
	// 每批从头查，已处理的订单不再是 PENDING_PAYMENT；失败的记下来跳过。
	failed := make(map[uint]bool)
	for {
		ids, err := r.staleIDs(ctx, cutoff, failed)
		if err != nil {
			return res, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			cancelled, err := r.cancel(ctx, id)
			switch {
			case err != nil:
				res.Failed++
				failed[id] = true
				r.log.Error("cancel stale order", zap.Uint("order_id", id), zap.Error(apperr.Background("reaper", err)))
			case cancelled:
				res.Cancelled++
			default:
				res.Skipped++
			}
		}
		if len(ids) < r.batchSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("reaper.cancelled", res.Cancelled),
		attribute.Int("reaper.skipped", res.Skipped),
		attribute.Int("reaper.failed", res.Failed),
	)
	if res.Cancelled+res.Skipped+res.Failed > 0 {
		r.log.Info("sweep done",
			zap.Int("cancelled", res.Cancelled),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (r *Reaper) staleIDs(ctx context.Context, cutoff time.Time, exclude map[uint]bool) ([]uint, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? AND created_at < ?", model.StatusPendingPayment, cutoff)
	if len(exclude) > 0 {
		skip := make([]uint, 0, len(exclude))
		for id := range exclude {
			skip = append(skip, id)
		}
		q = q.Where("id NOT IN ?", skip)
	}
	var ids []uint
	err := q.Order("created_at ASC").Order("id ASC").Limit(r.batchSize).Pluck("id", &ids).Error
	return ids, err
}

// cancel 条件更新 + 释放库存，同一事务。返回 false 表示订单已被支付或取消。
func (r *Reaper) cancel(ctx context.Context, orderID uint) (bool, error) {
	cancelled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", orderID, model.StatusPendingPayment).
			Updates(map[string]any{"status": model.StatusCancelled, "updated_at": r.clock.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var items []model.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		if err := inventory.ReleaseItems(ctx, tx, items); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}
