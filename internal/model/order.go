package model

import "time"

// Order 下单后身份不可变；明细保存下单时的价格快照，之后商品改价不影响订单金额。
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderNo     string      `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	TotalAmount int64       `gorm:"not null;check:chk_orders_total,total_amount >= 0" json:"total_amount"` // 单位：分
	Status      OrderStatus `gorm:"size:32;not null;default:PENDING_PAYMENT;index" json:"status"`

	Items   []OrderItem `json:"items"`
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID              uint   `gorm:"primarykey" json:"-"`
	OrderID         uint   `gorm:"not null;index" json:"-"`
	ProductID       uint   `gorm:"not null;index" json:"product_id"`
	ProductName     string `gorm:"size:200;not null" json:"product_name"`
	Quantity        int64  `gorm:"not null;check:chk_order_items_quantity,quantity >= 1" json:"quantity"`
	PriceAtPurchase int64  `gorm:"not null;check:chk_order_items_price,price_at_purchase >= 0" json:"price_at_purchase"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal 单行金额。
func (i OrderItem) LineTotal() int64 { return i.PriceAtPurchase * i.Quantity }
