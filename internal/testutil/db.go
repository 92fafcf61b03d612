package testutil

import (
	"strings"
	"testing"

	"ecommerce/internal/model"
	"ecommerce/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewDB returns an isolated in-memory database with the schema applied.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	db, err := storage.OpenMemory(name)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email, role string) model.User {
	t.Helper()

	u := model.User{Name: "user", Email: email, PasswordHash: "x", Role: role, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProduct(t *testing.T, db *gorm.DB, name string, price, stock int64) model.Product {
	t.Helper()

	p := model.Product{Name: name, Description: name + " description", Price: price, AvailableStock: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// FillCart puts (productID -> qty) lines into the user's cart, creating the cart if needed.
func FillCart(t *testing.T, db *gorm.DB, userID uint, lines map[uint]int64) {
	t.Helper()

	cart := model.Cart{UserID: userID}
	if err := db.Where("user_id = ?", userID).FirstOrCreate(&cart).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for pid, qty := range lines {
		item := model.CartItem{CartID: cart.ID, ProductID: pid, Quantity: qty}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
}

func ReloadProduct(t *testing.T, db *gorm.DB, id uint) model.Product {
	t.Helper()

	var p model.Product
	if err := db.Unscoped().First(&p, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p
}

func ReloadOrder(t *testing.T, db *gorm.DB, id uint) model.Order {
	t.Helper()

	var o model.Order
	if err := db.Preload("Items").Preload("Payment").First(&o, id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return o
}
