package model

import "gorm.io/gorm"

// AutoMigrate 建表（含 CHECK 约束与唯一索引）。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
	)
}
