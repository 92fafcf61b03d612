// Package catalog 商品的增删改查。库存计数器里的预留部分只由订单流程修改，这里从不直接改。
package catalog

import (
	"context"
	"errors"
	"strings"

	"ecommerce/internal/apperr"
	"ecommerce/internal/model"
	"ecommerce/internal/pagination"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.With(zap.String("component", "catalog"))}
}

type CreateProductInput struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	Description    string `json:"description" binding:"required,min=1"`
	Price          int64  `json:"price" binding:"required,gt=0,max=1000000000"`
	AvailableStock int64  `json:"available_stock" binding:"min=0,max=1000000000"`
}

// UpdateProductInput 部分更新，nil 表示不改。
type UpdateProductInput struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description    *string `json:"description" binding:"omitempty,min=1"`
	Price          *int64  `json:"price" binding:"omitempty,gt=0,max=1000000000"`
	AvailableStock *int64  `json:"available_stock" binding:"omitempty,min=0,max=1000000000"`
}

type ListQuery struct {
	pagination.Query
	Name      string `form:"name"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=name price createdAt"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

type Page struct {
	Products   []model.Product `json:"products"`
	Pagination pagination.Meta `json:"pagination"`
}

var sortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"createdAt": "created_at",
}

func (s *Service) Create(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	if name == "" || desc == "" {
		return nil, apperr.Validation("name and description are required")
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	if err := checkStock(in.AvailableStock); err != nil {
		return nil, err
	}

	p := model.Product{Name: name, Description: desc, Price: in.Price, AvailableStock: in.AvailableStock}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperr.Abort(err)
	}
	s.log.Info("product created", zap.Uint("product_id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateProductInput) (*model.Product, error) {
	updates := map[string]any{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, apperr.Validation("description cannot be empty")
		}
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if err := checkPrice(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = *in.Price
	}
	if in.AvailableStock != nil {
		if err := checkStock(*in.AvailableStock); err != nil {
			return nil, err
		}
		updates["available_stock"] = *in.AvailableStock
	}

	var p model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ProductNotFound()
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, apperr.WrapTx(err)
	}
	return &p, nil
}

// Delete 软删除：已下单的订单仍能按商品 ID 对账。
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return apperr.Abort(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ProductNotFound()
	}
	s.log.Info("product deleted", zap.Uint("product_id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ProductNotFound()
		}
		return nil, apperr.Abort(err)
	}
	return &p, nil
}

// List 分页 + 名称模糊匹配（不区分大小写）+ 排序，默认按创建时间倒序。
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	pq := q.Query.Normalize()

	col := "created_at"
	if q.SortBy != "" {
		c, ok := sortColumns[q.SortBy]
		if !ok {
			return nil, apperr.Validation("sortBy must be one of name, price, createdAt")
		}
		col = c
	}
	dir := "DESC"
	switch strings.ToLower(q.SortOrder) {
	case "", "desc":
	case "asc":
		dir = "ASC"
	default:
		return nil, apperr.Validation("sortOrder must be asc or desc")
	}

	base := s.db.WithContext(ctx).Model(&model.Product{})
	if name := strings.TrimSpace(q.Name); name != "" {
		base = base.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(name))+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperr.Abort(err)
	}
	products := make([]model.Product, 0, pq.Limit)
	err := base.Session(&gorm.Session{}).
		Order(col + " " + dir).Order("id " + dir).
		Offset(pq.Offset()).Limit(pq.Limit).
		Find(&products).Error
	if err != nil {
		return nil, apperr.Abort(err)
	}
	return &Page{Products: products, Pagination: pagination.NewMeta(pq, total)}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func checkPrice(price int64) error {
	if price <= 0 || price > model.MaxPrice {
		return apperr.Validation("price must be between 1 and %d", model.MaxPrice)
	}
	return nil
}

func checkStock(stock int64) error {
	if stock < 0 || stock > model.MaxStock {
		return apperr.Validation("available_stock must be between 0 and %d", model.MaxStock)
	}
	return nil
}
