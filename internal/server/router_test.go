package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bazaar/internal/auth"
	"bazaar/internal/config"
	"bazaar/internal/domain"
	"bazaar/internal/dto"
	"bazaar/internal/infrastructure/metrics"
	"bazaar/internal/order"
	"bazaar/internal/order/idempotency"
	orderrepo "bazaar/internal/order/repository"
	"bazaar/internal/order/usecase"
	"bazaar/internal/product"
	productrepo "bazaar/internal/product/repository"
)

type testApp struct {
	handler  http.Handler
	products *productrepo.MemoryRepository
	verifier *auth.Verifier
}

func newTestApp(t *testing.T) *testApp {
	logger := zap.NewNop()
	products := productrepo.NewMemoryRepository(domain.Product{
		ID: "P", Title: "Mug", Price: decimal.NewFromInt(10), Quantity: 3,
	})
	orders := orderrepo.NewMemoryOrderRepository()

	cfg := config.Defaults().Order
	cfg.PaymentDelay = time.Millisecond

	m := metrics.New()
	verifier := auth.NewVerifier("test-secret")
	orderCtrl := order.NewModule(products, orders, cfg, logger,
		usecase.WithIdempotency(idempotency.NewMemoryStore(), time.Hour),
		usecase.WithMetrics(m),
	)

	return &testApp{
		handler:  NewRouter(product.NewModule(products, logger), orderCtrl, verifier, m, logger),
		products: products,
		verifier: verifier,
	}
}

func (a *testApp) do(t *testing.T, method, path, body, user string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if user != "" {
		token, err := a.verifier.Issue(user, "user", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) stock(t *testing.T) int {
	p, err := a.products.FindByID(context.Background(), "P")
	require.NoError(t, err)
	return p.Quantity
}

const codBody = `{"items":[{"productId":"P","quantity":2}],"shippingAddress":"123 Main St","paymentMethod":"COD"}`

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health", "", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_OrdersRequireToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders", codBody, "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 3, app.stock(t))
}

func TestRouter_CheckoutFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders/preview", codBody, "u-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, app.stock(t))

	headers := map[string]string{idempotency.Header: "cart-1"}
	rec = app.do(t, http.MethodPost, "/orders", codBody, "u-1", headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dto.OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "120", created.TotalAmount.String())
	assert.Equal(t, 1, app.stock(t))

	rec = app.do(t, http.MethodPost, "/orders", codBody, "u-1", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var replayed dto.OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&replayed))
	assert.Equal(t, created.ID, replayed.ID)
	assert.True(t, replayed.Replayed)
	assert.Equal(t, 1, app.stock(t))

	rec = app.do(t, http.MethodPost, "/orders", codBody, "u-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodGet, "/orders/my-orders", "", "u-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.OrderListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, created.ID, list.Orders[0].ID)

	rec = app.do(t, http.MethodGet, "/orders/my-orders", "", "u-2", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Empty(t, list.Orders)
}

func TestRouter_MetricsExposeCheckouts(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodPost, "/orders", codBody, "u-1", nil)

	rec := app.do(t, http.MethodGet, "/metrics", "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `bazaar_checkout_outcomes_total{payment_method="COD",state="COMPLETED"} 1`))
	assert.True(t, strings.Contains(body, `bazaar_http_requests_total{route="/orders`))
	assert.True(t, strings.Contains(body, `status="201"} 1`))
}

func TestRouter_ProductSearch(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/products/search", `{"productIds":["P","nope"]}`, "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body product.SearchProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Products, 1)
	assert.Equal(t, []string{"nope"}, body.NotFound)
}
