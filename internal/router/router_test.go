package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecommerce/internal/auth"
	"ecommerce/internal/cart"
	"ecommerce/internal/catalog"
	"ecommerce/internal/clock"
	"ecommerce/internal/config"
	"ecommerce/internal/model"
	"ecommerce/internal/notify"
	"ecommerce/internal/order"
	"ecommerce/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Error  string          `json:"error"`
	Fields map[string]any  `json:"fields"`
	Data   json.RawMessage `json:"data"`
}

type server struct {
	t     *testing.T
	db    *gorm.DB
	clock *clock.Manual
	h     http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	clk := clock.NewManual(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	sink := notify.NewSink(8, log, notify.WithHandler(notify.JobSendEmail, notify.LogMailer{Log: log}))
	sink.Start(context.Background())
	t.Cleanup(func() { _ = sink.Shutdown(context.Background()) })

	authSvc := auth.NewService(db, auth.NewTokens("test-secret", time.Hour, clk), log)
	require.NoError(t, authSvc.EnsureAdmin(context.Background(), "admin@example.com", "adminpass"))

	r := gin.New()
	Setup(r, Deps{
		Auth:    authSvc,
		Catalog: catalog.NewService(db, log),
		Cart:    cart.NewService(db),
		Orders:  order.NewService(db, clk, sink, log),
		Config:  config.AppConfig{OrderRateLimit: 5, OrderRateWindow: time.Minute},
		Log:     log,
	})
	return &server{t: t, db: db, clock: clk, h: r}
}

func (s *server) call(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *server) token(method, path string, body any) string {
	s.t.Helper()
	code, env := s.call(method, path, "", body)
	require.Contains(s.t, []int{http.StatusOK, http.StatusCreated}, code, env.Msg)
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &sess))
	return sess.Token
}

func (s *server) registerUser(email string) string {
	return s.token(http.MethodPost, "/api/auth/register",
		gin.H{"name": "Buyer", "email": email, "password": "secret1"})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestPing(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderFlow(t *testing.T) {
	s := newServer(t)
	adminTok := s.token(http.MethodPost, "/api/auth/login", gin.H{"email": "admin@example.com", "password": "adminpass"})
	buyer := s.registerUser("buyer@example.com")
	rival := s.registerUser("rival@example.com")

	code, env := s.call(http.MethodPost, "/api/products", adminTok,
		gin.H{"name": "P", "description": "limited", "price": 500, "available_stock": 5})
	require.Equal(t, http.StatusCreated, code, env.Msg)
	product := decode[model.Product](t, env.Data)

	code, _ = s.call(http.MethodPost, "/api/products", buyer, gin.H{"name": "X", "description": "x", "price": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.call(http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": product.ID, "quantity": 5})
	require.Equal(t, http.StatusOK, code, env.Msg)

	code, env = s.call(http.MethodPost, "/api/orders/checkout", buyer, nil)
	require.Equal(t, http.StatusCreated, code, env.Msg)
	created := decode[struct {
		ID              uint      `json:"id"`
		Status          string    `json:"status"`
		TotalAmount     int64     `json:"total_amount"`
		TotalDisplay    string    `json:"total_display"`
		PaymentDeadline time.Time `json:"payment_deadline"`
	}](t, env.Data)
	assert.Equal(t, "PENDING_PAYMENT", created.Status)
	assert.Equal(t, int64(2500), created.TotalAmount)
	assert.Equal(t, "25.00", created.TotalDisplay)
	assert.Equal(t, s.clock.Now().Add(15*time.Minute), created.PaymentDeadline.UTC())

	code, env = s.call(http.MethodPost, "/api/cart/items", rival, gin.H{"product_id": product.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, code, env.Msg)
	code, env = s.call(http.MethodPost, "/api/orders/checkout", rival, nil)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "insufficient_stock", env.Error)
	assert.Equal(t, float64(0), env.Fields["available"])
	assert.Equal(t, float64(1), env.Fields["requested"])

	code, env = s.call(http.MethodPost, "/api/orders/checkout", buyer, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "empty_cart", env.Error)

	orderPath := fmt.Sprintf("/api/orders/%d", created.ID)
	code, _ = s.call(http.MethodGet, orderPath, rival, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.call(http.MethodPost, orderPath+"/pay", rival, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.call(http.MethodPost, orderPath+"/pay", buyer, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)
	paid := decode[struct {
		Payment model.Payment `json:"payment"`
	}](t, env.Data)
	assert.Equal(t, model.PaymentSuccess, paid.Payment.Status)
	assert.Equal(t, int64(2500), paid.Payment.Amount)

	code, env = s.call(http.MethodPost, orderPath+"/pay", buyer, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", env.Error)
	assert.Equal(t, "PAID", env.Fields["current_status"])

	stock := testutil.ReloadProduct(t, s.db, product.ID)
	assert.Zero(t, stock.AvailableStock)
	assert.Zero(t, stock.ReservedStock)

	statusPath := fmt.Sprintf("/api/admin/orders/%d/status", created.ID)
	code, _ = s.call(http.MethodPatch, statusPath, buyer, gin.H{"status": "SHIPPED"})
	assert.Equal(t, http.StatusForbidden, code)
	code, env = s.call(http.MethodPatch, statusPath, adminTok, gin.H{"status": "DELIVERED"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "illegal_transition", env.Error)
	code, env = s.call(http.MethodPatch, statusPath, adminTok, gin.H{"status": "PAID"})
	assert.Equal(t, http.StatusBadRequest, code, env.Msg)
	code, env = s.call(http.MethodPatch, statusPath, adminTok, gin.H{"status": "SHIPPED"})
	require.Equal(t, http.StatusOK, code, env.Msg)

	code, env = s.call(http.MethodGet, orderPath, buyer, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
		Payment *model.Payment `json:"payment"`
	}](t, env.Data)
	assert.Equal(t, "SHIPPED", got.Order.Status)
	require.NotNil(t, got.Payment)

	code, env = s.call(http.MethodGet, "/api/admin/orders?status=SHIPPED", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	all := decode[order.Page](t, env.Data)
	assert.Equal(t, int64(1), all.Pagination.Total)

	code, env = s.call(http.MethodGet, "/api/orders", rival, nil)
	require.Equal(t, http.StatusOK, code)
	mine := decode[order.Page](t, env.Data)
	assert.Zero(t, mine.Pagination.Total)
}

func TestPayAfterDeadlineReturnsConflict(t *testing.T) {
	s := newServer(t)
	buyer := s.registerUser("buyer@example.com")
	p := testutil.CreateProduct(t, s.db, "P", 100, 3)

	code, env := s.call(http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code, env.Msg)
	code, env = s.call(http.MethodPost, "/api/orders/checkout", buyer, nil)
	require.Equal(t, http.StatusCreated, code, env.Msg)
	o := decode[struct {
		ID uint `json:"id"`
	}](t, env.Data)

	s.clock.Advance(16 * time.Minute)
	code, env = s.call(http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", o.ID), buyer, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "deadline_expired", env.Error)
	assert.Equal(t, "2025-03-01T10:15:00Z", env.Fields["deadline"])
}

func TestRequestValidation(t *testing.T) {
	s := newServer(t)
	buyer := s.registerUser("buyer@example.com")

	code, _ := s.call(http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.call(http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": 1, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error)

	code, _ = s.call(http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": 1, "quantity": 10001})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.call(http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": 999, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.call(http.MethodGet, "/api/products?page=100001", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.call(http.MethodPost, "/api/orders/abc/pay", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.call(http.MethodDelete, "/api/cart/items/1", s.registerUser("fresh@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.call(http.MethodPost, "/api/auth/register", "", gin.H{"name": "B", "email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.call(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Buyer", "email": "buyer@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error)

	code, _ = s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "buyer@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProductListingIsPublic(t *testing.T) {
	s := newServer(t)
	testutil.CreateProduct(t, s.db, "Apple", 300, 1)
	testutil.CreateProduct(t, s.db, "Banana", 100, 1)

	code, env := s.call(http.MethodGet, "/api/products?sortBy=price&sortOrder=asc", "", nil)
	require.Equal(t, http.StatusOK, code, env.Msg)
	page := decode[catalog.Page](t, env.Data)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Banana", page.Products[0].Name)

	code, _ = s.call(http.MethodGet, "/api/products?sortBy=stock", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.call(http.MethodGet, "/api/products?limit=1000", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
