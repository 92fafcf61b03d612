package model

import "time"

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment 与订单一对一，创建后不再修改。
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID       uint          `gorm:"not null;uniqueIndex" json:"order_id"`
	TransactionID string        `gorm:"size:64;not null;uniqueIndex" json:"transaction_id"`
	Amount        int64         `gorm:"not null;check:chk_payments_amount,amount >= 0" json:"amount"`
	Status        PaymentStatus `gorm:"size:16;not null" json:"status"`
}

func (Payment) TableName() string { return "payments" }
