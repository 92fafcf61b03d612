package model

import "time"

// Cart 每个用户唯一，首次访问时创建；下单成功后清空而不删除。
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uint  `gorm:"primarykey" json:"-"`
	CartID    uint  `gorm:"not null;uniqueIndex:idx_cart_product" json:"-"`
	ProductID uint  `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int64 `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string { return "cart_items" }

// MaxCartQuantity 单个商品在购物车里的数量上限，合并后也不能超过。
const MaxCartQuantity int64 = 10_000
