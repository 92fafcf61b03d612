package order

import (
	"context"
	"errors"

	"ecommerce/internal/apperr"
	"ecommerce/internal/auth"
	"ecommerce/internal/model"
	"ecommerce/internal/pagination"

	"gorm.io/gorm"
)

type ListQuery struct {
	pagination.Query
	Status model.OrderStatus `form:"status"`
}

type Page struct {
	Orders     []model.Order   `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// Get 普通用户只能看自己的订单，管理员可看全部。
func (s *Service) Get(ctx context.Context, id auth.Identity, orderID uint) (*model.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items").Preload("Payment")
	if !id.IsAdmin() {
		q = q.Where("user_id = ?", id.UserID)
	}
	var o model.Order
	if err := q.First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.OrderNotFound()
		}
		return nil, apperr.Abort(err)
	}
	return &o, nil
}

// List 调用方自己的订单，新的在前。
func (s *Service) List(ctx context.Context, id auth.Identity, q ListQuery) (*Page, error) {
	return s.list(ctx, &id.UserID, q)
}

// ListAll 管理员查看全部订单，可按状态过滤。
func (s *Service) ListAll(ctx context.Context, q ListQuery) (*Page, error) {
	return s.list(ctx, nil, q)
}

func (s *Service) list(ctx context.Context, userID *uint, q ListQuery) (*Page, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", q.Status)
	}
	pq := q.Query.Normalize()

	base := s.db.WithContext(ctx).Model(&model.Order{})
	if userID != nil {
		base = base.Where("user_id = ?", *userID)
	}
	if q.Status != "" {
		base = base.Where("status = ?", q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperr.Abort(err)
	}
	orders := make([]model.Order, 0, pq.Limit)
	err := base.Session(&gorm.Session{}).
		Preload("Items").Preload("Payment").
		Order("created_at DESC").Order("id DESC").
		Offset(pq.Offset()).Limit(pq.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Abort(err)
	}
	return &Page{Orders: orders, Pagination: pagination.NewMeta(pq, total)}, nil
}
