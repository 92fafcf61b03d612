// Package cart 每个用户一个购物车，首次访问时创建。
package cart

import (
	"context"
	"errors"

	"ecommerce/internal/apperr"
	"ecommerce/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type AddItemInput struct {
	ProductID uint  `json:"product_id" binding:"required,min=1"`
	Quantity  int64 `json:"quantity" binding:"required,min=1,max=10000"`
}

// Get 返回购物车及商品摘要，不存在则创建空车。
func (s *Service) Get(ctx context.Context, userID uint) (*model.Cart, error) {
	c, err := s.getOrCreate(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, apperr.Abort(err)
	}
	return s.load(ctx, c.ID)
}

// AddItem 商品已在车里则累加数量。
func (s *Service) AddItem(ctx context.Context, userID uint, in AddItemInput) (*model.Cart, error) {
	if in.Quantity <= 0 || in.Quantity > model.MaxCartQuantity {
		return nil, apperr.Validation("quantity must be between 1 and %d", model.MaxCartQuantity)
	}

	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Product
		if err := tx.Select("id").First(&p, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ProductNotFound()
			}
			return err
		}
		c, err := s.getOrCreate(tx, userID)
		if err != nil {
			return err
		}
		cartID = c.ID

		var existing model.CartItem
		err = tx.Select("quantity").Where("cart_id = ? AND product_id = ?", c.ID, p.ID).Take(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing.Quantity+in.Quantity > model.MaxCartQuantity {
			return apperr.Validation("quantity in cart cannot exceed %d", model.MaxCartQuantity)
		}

		item := model.CartItem{CartID: c.ID, ProductID: p.ID, Quantity: in.Quantity}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
			}),
		}).Create(&item).Error
	})
	if err != nil {
		return nil, apperr.WrapTx(err)
	}
	return s.load(ctx, cartID)
}

// RemoveItem 商品不在车里时静默成功；用户没有购物车返回 CartNotFound。
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint) (*model.Cart, error) {
	var c model.Cart
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.CartNotFound()
		}
		return nil, apperr.Abort(err)
	}
	if err := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", c.ID, productID).
		Delete(&model.CartItem{}).Error; err != nil {
		return nil, apperr.Abort(err)
	}
	return s.load(ctx, c.ID)
}

func (s *Service) getOrCreate(tx *gorm.DB, userID uint) (model.Cart, error) {
	c := model.Cart{UserID: userID}
	err := tx.Where("user_id = ?", userID).FirstOrCreate(&c).Error
	return c, err
}

func (s *Service) load(ctx context.Context, cartID uint) (*model.Cart, error) {
	var c model.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&c, cartID).Error
	if err != nil {
		return nil, apperr.Abort(err)
	}
	return &c, nil
}
