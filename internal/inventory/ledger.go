// Package inventory 维护商品的可售库存与预留库存。
//
// 所有操作都在调用方传入的事务里执行，与订单状态变更同生共死：
// 库存改了而订单没改（或反过来）都是错误。每个操作都是一条带条件的 UPDATE，
// 条件不满足时影响行数为 0，计数器永远不会变成负数。
package inventory

import (
	"context"
	"errors"
	"fmt"

	"ecommerce/internal/apperr"
	"ecommerce/internal/model"

	"gorm.io/gorm"
)

// Stock 某商品的库存快照。
type Stock struct {
	Available int64
	Reserved  int64
}

// Total 仓内实物总量，预留与提交只在两个计数器之间搬运。
func (s Stock) Total() int64 { return s.Available + s.Reserved }

// Reserve 可售 -> 预留。可售不足时返回 InsufficientStock，事务应整体回滚。
func Reserve(ctx context.Context, tx *gorm.DB, productID uint, qty int64) error {
	if qty <= 0 {
		return apperr.Validation("reserve quantity must be > 0, got %d", qty)
	}
	res := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND available_stock >= ?", productID, qty).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock - ?", qty),
			"reserved_stock":  gorm.Expr("reserved_stock + ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("reserve product %d: %w", productID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var p model.Product
	if err := tx.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ProductNotFound()
		}
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	return apperr.InsufficientStock(p.ID, p.Name, p.AvailableStock, qty)
}

// Commit 支付成功：预留转为永久扣减，可售库存不变（预留时已经扣过）。
func Commit(ctx context.Context, tx *gorm.DB, productID uint, qty int64) error {
	if qty <= 0 {
		return apperr.Validation("commit quantity must be > 0, got %d", qty)
	}
	// Unscoped：商品下架（软删除）后，已有订单仍要能对账。
	res := tx.WithContext(ctx).Unscoped().Model(&model.Product{}).
		Where("id = ? AND reserved_stock >= ?", productID, qty).
		Update("reserved_stock", gorm.Expr("reserved_stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("commit product %d: %w", productID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("commit product %d: reserved stock below %d", productID, qty)
	}
	return nil
}

// Release 撤销预留：预留 -> 可售，用于超时取消与管理员取消。
func Release(ctx context.Context, tx *gorm.DB, productID uint, qty int64) error {
	if qty <= 0 {
		return apperr.Validation("release quantity must be > 0, got %d", qty)
	}
	res := tx.WithContext(ctx).Unscoped().Model(&model.Product{}).
		Where("id = ? AND reserved_stock >= ?", productID, qty).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock + ?", qty),
			"reserved_stock":  gorm.Expr("reserved_stock - ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("release product %d: %w", productID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("release product %d: reserved stock below %d", productID, qty)
	}
	return nil
}

// ReleaseItems 释放整张订单的预留。
func ReleaseItems(ctx context.Context, tx *gorm.DB, items []model.OrderItem) error {
	for _, it := range items {
		if err := Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CommitItems 提交整张订单的预留。
func CommitItems(ctx context.Context, tx *gorm.DB, items []model.OrderItem) error {
	for _, it := range items {
		if err := Commit(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func Snapshot(ctx context.Context, db *gorm.DB, productID uint) (Stock, error) {
	var p model.Product
	if err := db.WithContext(ctx).Unscoped().Select("available_stock", "reserved_stock").First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Stock{}, apperr.ProductNotFound()
		}
		return Stock{}, err
	}
	return Stock{Available: p.AvailableStock, Reserved: p.ReservedStock}, nil
}
