package model

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品：价格、可售库存与已预留库存。
// AvailableStock + ReservedStock 等于仓内实物数量；两者都不能为负，由 CHECK 约束兜底。
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name           string `gorm:"size:200;not null;index" json:"name"`
	Description    string `gorm:"type:text;not null" json:"description"`
	Price          int64  `gorm:"not null;check:chk_products_price,price >= 0" json:"price"` // 单位：分
	AvailableStock int64  `gorm:"not null;default:0;check:chk_products_available,available_stock >= 0" json:"available_stock"`
	ReservedStock  int64  `gorm:"not null;default:0;check:chk_products_reserved,reserved_stock >= 0" json:"reserved_stock"`
}

func (Product) TableName() string { return "products" }

// 价格与库存上限，保证订单金额在 int64 内不会溢出。
const (
	MaxPrice int64 = 1_000_000_000 // 1000 万元
	MaxStock int64 = 1_000_000_000
)
