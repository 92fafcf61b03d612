package router

import (
	"net/http"

	"ecommerce/internal/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// listProducts 分页查询商品，支持 name 模糊匹配与 sortBy/sortOrder。
func listProducts(svc *catalog.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q catalog.ListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			fail(c, log, bindError(err))
			return
		}
		page, err := svc.List(c.Request.Context(), q)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, page)
	}
}

func getProduct(svc *catalog.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		p, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, p)
	}
}

func createProduct(svc *catalog.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CreateProductInput
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		p, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusCreated, p)
	}
}

func updateProduct(svc *catalog.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		var req catalog.UpdateProductInput
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, log, bindError(err))
			return
		}
		p, err := svc.Update(c.Request.Context(), id, req)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, http.StatusOK, p)
	}
}

func deleteProduct(svc *catalog.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, log, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "product deleted"})
	}
}
