package router

import (
	"net/http"

	"ecommerce/internal/auth"
	"ecommerce/internal/cart"
	"ecommerce/internal/catalog"
	"ecommerce/internal/config"
	"ecommerce/internal/middleware"
	"ecommerce/internal/model"
	"ecommerce/internal/order"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps 路由层依赖的全部服务，由 cmd/server 组装。
type Deps struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Cart    *cart.Service
	Orders  *order.Service
	Redis   *rd.Client // nil 时不限流
	Config  config.AppConfig
	Log     *zap.Logger
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	api := r.Group("/api")
	authn := middleware.Authenticate(d.Auth)
	admin := middleware.RequireRole(model.RoleAdmin)
	user := middleware.RequireRole(model.RoleUser)

	a := api.Group("/auth")
	a.POST("/register", register(d.Auth, d.Log))
	a.POST("/login", login(d.Auth, d.Log))

	// Products：列表公开，写操作仅管理员
	api.GET("/products", listProducts(d.Catalog, d.Log))
	api.GET("/products/:id", getProduct(d.Catalog, d.Log))
	api.POST("/products", authn, admin, createProduct(d.Catalog, d.Log))
	api.PUT("/products/:id", authn, admin, updateProduct(d.Catalog, d.Log))
	api.DELETE("/products/:id", authn, admin, deleteProduct(d.Catalog, d.Log))

	carts := api.Group("/cart", authn, user)
	carts.GET("", getCart(d.Cart, d.Log))
	carts.POST("/items", addCartItem(d.Cart, d.Log))
	carts.DELETE("/items/:product_id", removeCartItem(d.Cart, d.Log))

	limit := middleware.RedisRateLimit(d.Redis, "orders", d.Config.OrderRateLimit, d.Config.OrderRateWindow, d.Log)
	orders := api.Group("/orders", authn, user)
	orders.POST("/checkout", limit, checkout(d.Orders, d.Log))
	orders.POST("/:id/pay", limit, pay(d.Orders, d.Log))
	orders.GET("", listOrders(d.Orders, d.Log))
	orders.GET("/:id", getOrder(d.Orders, d.Log))

	adm := api.Group("/admin", authn, admin)
	adm.GET("/orders", listAllOrders(d.Orders, d.Log))
	adm.GET("/orders/:id", getOrder(d.Orders, d.Log))
	adm.PATCH("/orders/:id/status", updateOrderStatus(d.Orders, d.Log))
}
