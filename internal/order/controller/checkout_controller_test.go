package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bazaar/internal/auth"
	"bazaar/internal/domain"
	"bazaar/internal/dto"
	apperrors "bazaar/internal/errors"
)

type mockCheckoutUseCase struct {
	CheckoutFunc func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error)
	PreviewFunc  func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.OrderPreview, error)
	last         dto.PlaceOrderCommand
}

func (m *mockCheckoutUseCase) Checkout(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
	m.last = cmd
	return m.CheckoutFunc(ctx, cmd)
}

func (m *mockCheckoutUseCase) Preview(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.OrderPreview, error) {
	m.last = cmd
	return m.PreviewFunc(ctx, cmd)
}

type mockListOrdersUseCase struct {
	ListMyOrdersFunc func(ctx context.Context, userID string) ([]domain.Order, error)
}

func (m *mockListOrdersUseCase) ListMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return m.ListMyOrdersFunc(ctx, userID)
}

func sampleOrder() domain.Order {
	items := []domain.LineItem{{ProductID: "p-1", ProductTitle: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	o := domain.NewOrder("u-1", items, "123 Main St", domain.PaymentMethodCOD, domain.DefaultDeliveryCharge, time.Now())
	o.ID = "o-1"
	return o
}

const validBody = `{"items":[{"productId":"p-1","quantity":2}],"shippingAddress":"123 Main St","paymentMethod":"COD"}`

func newRequest(method, path, body string, withIdentity bool) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if withIdentity {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u-1", Role: "user"}))
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestPlaceOrder_Created(t *testing.T) {
	uc := &mockCheckoutUseCase{
		CheckoutFunc: func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
			o := sampleOrder()
			return &dto.CheckoutResult{Order: &o, State: dto.CheckoutCompleted}, nil
		},
	}
	c := NewCheckoutController(uc, nil, zap.NewNop())

	req := newRequest(http.MethodPost, "/orders", validBody, true)
	req.Header.Set("Idempotency-Key", "k-1")
	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u-1", uc.last.UserID)
	assert.Equal(t, "k-1", uc.last.IdempotencyKey)
	assert.Equal(t, domain.PaymentMethodCOD, uc.last.PaymentMethod)

	var body dto.OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "o-1", body.ID)
	assert.Equal(t, "120", body.TotalAmount.String())
	assert.Equal(t, "COMPLETED", body.CheckoutState)
	assert.False(t, body.IsPaid)
	assert.NotEmpty(t, body.TraceID)
}

func TestPlaceOrder_ReplayReturnsOK(t *testing.T) {
	uc := &mockCheckoutUseCase{
		CheckoutFunc: func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
			o := sampleOrder()
			return &dto.CheckoutResult{Order: &o, State: dto.CheckoutCompleted, Replayed: true}, nil
		},
	}
	c := NewCheckoutController(uc, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", validBody, true))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceOrder_RequestValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"invalid json", `{`, "body"},
		{"no items", `{"items":[],"shippingAddress":"x","paymentMethod":"COD"}`, "items"},
		{"blank product id", `{"items":[{"productId":"","quantity":1}],"shippingAddress":"x","paymentMethod":"COD"}`, "items[0].productId"},
		{"zero quantity", `{"items":[{"productId":"p-1","quantity":0}],"shippingAddress":"x","paymentMethod":"COD"}`, "items[0].quantity"},
		{"bad payment method", `{"items":[{"productId":"p-1","quantity":1}],"shippingAddress":"x","paymentMethod":"Cheque"}`, "paymentMethod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockCheckoutUseCase{}
			c := NewCheckoutController(uc, nil, zap.NewNop())

			rec := httptest.NewRecorder()
			c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", tt.body, true))

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body validationErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "VALIDATION_ERROR", body.Error)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.field, body.Details[0].Field)
		})
	}
}

func TestPlaceOrder_TooManyItems(t *testing.T) {
	var items bytes.Buffer
	for i := 0; i <= maxItems; i++ {
		if i > 0 {
			items.WriteString(",")
		}
		fmt.Fprintf(&items, `{"productId":"p-%d","quantity":1}`, i)
	}
	body := `{"items":[` + items.String() + `],"shippingAddress":"x","paymentMethod":"COD"}`

	c := NewCheckoutController(&mockCheckoutUseCase{}, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", body, true))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_MissingIdentity(t *testing.T) {
	c := NewCheckoutController(&mockCheckoutUseCase{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", validBody, false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_ErrorMapping(t *testing.T) {
	partial := apperrors.NewPartialCommitError("o-1", nil, []apperrors.FailedDecrement{
		{ProductID: "p-1", Quantity: 2, Reason: "short", Err: apperrors.NewInsufficientStockError("p-1", "Mug", 0, 2)},
	})

	tests := []struct {
		name    string
		err     error
		state   dto.CheckoutState
		status  int
		code    string
		message string
	}{
		{"product not found", apperrors.NewProductNotFoundError("ghost"), dto.CheckoutRejected, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product ghost not found"},
		{"insufficient stock", apperrors.NewInsufficientStockError("p-1", "Mug", 1, 2), dto.CheckoutRejected, http.StatusConflict, "INSUFFICIENT_STOCK", "Out of Stock: Mug (available 1, requested 2)"},
		{"invalid address", apperrors.NewInvalidAddressError("shipping address is required"), dto.CheckoutRejected, http.StatusBadRequest, "INVALID_ADDRESS", "shipping address is required"},
		{"duplicate in flight", apperrors.NewConflictError("in progress"), dto.CheckoutRejected, http.StatusConflict, "CONFLICT", "in progress"},
		{"persistence", apperrors.NewPersistenceError("creating order", errors.New("db down")), dto.CheckoutFailed, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "something went wrong, please try again"},
		{"partial commit", partial, dto.CheckoutFailed, http.StatusInternalServerError, "CHECKOUT_FAILED", "we could not finish your order, please try again later"},
		{"timeout", fmt.Errorf("authorizing payment: %w", context.DeadlineExceeded), dto.CheckoutFailed, http.StatusGatewayTimeout, "TIMEOUT", "the request took too long, please try again"},
		{"unexpected", errors.New("boom"), dto.CheckoutFailed, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockCheckoutUseCase{
				CheckoutFunc: func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
					return &dto.CheckoutResult{State: tt.state}, tt.err
				},
			}
			c := NewCheckoutController(uc, nil, zap.NewNop())

			rec := httptest.NewRecorder()
			c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", validBody, true))

			require.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestPlaceOrder_InsufficientStockDetails(t *testing.T) {
	uc := &mockCheckoutUseCase{
		CheckoutFunc: func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
			return &dto.CheckoutResult{State: dto.CheckoutRejected}, apperrors.NewInsufficientStockError("p-1", "Mug", 1, 2)
		},
	}
	c := NewCheckoutController(uc, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, newRequest(http.MethodPost, "/orders", validBody, true))

	body := decodeError(t, rec)
	require.NotNil(t, body.Details)
	assert.Equal(t, "p-1", body.Details.ProductID)
	assert.Equal(t, "Mug", body.Details.Title)
	assert.Equal(t, 1, *body.Details.Available)
	assert.Equal(t, 2, *body.Details.Requested)
	assert.Equal(t, "REJECTED", body.Details.State)
}

func TestPreview(t *testing.T) {
	uc := &mockCheckoutUseCase{
		PreviewFunc: func(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.OrderPreview, error) {
			items := sampleOrder().Items
			return &dto.OrderPreview{
				Items:          items,
				ItemsTotal:     decimal.NewFromInt(20),
				DeliveryCharge: decimal.NewFromInt(100),
				TotalAmount:    decimal.NewFromInt(120),
				PaymentMethod:  cmd.PaymentMethod,
			}, nil
		},
	}
	c := NewCheckoutController(uc, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	c.Preview(rec, newRequest(http.MethodPost, "/orders/preview", validBody, true))

	require.Equal(t, http.StatusOK, rec.Code)

	var body dto.PreviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "120", body.TotalAmount.String())
	assert.Equal(t, "COD", body.PaymentMethod)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Mug", body.Items[0].Title)
}

func TestMyOrders(t *testing.T) {
	var asked string
	orders := &mockListOrdersUseCase{
		ListMyOrdersFunc: func(ctx context.Context, userID string) ([]domain.Order, error) {
			asked = userID
			return []domain.Order{sampleOrder()}, nil
		},
	}
	c := NewCheckoutController(nil, orders, zap.NewNop())

	rec := httptest.NewRecorder()
	c.MyOrders(rec, newRequest(http.MethodGet, "/orders/my-orders", "", true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", asked)

	var body dto.OrderListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "o-1", body.Orders[0].ID)
	assert.Equal(t, "Pending", body.Orders[0].Status)
}

func TestMyOrders_StoreDown(t *testing.T) {
	orders := &mockListOrdersUseCase{
		ListMyOrdersFunc: func(ctx context.Context, userID string) ([]domain.Order, error) {
			return nil, apperrors.NewPersistenceError("listing orders", errors.New("timeout"))
		},
	}
	c := NewCheckoutController(nil, orders, zap.NewNop())

	rec := httptest.NewRecorder()
	c.MyOrders(rec, newRequest(http.MethodGet, "/orders/my-orders", "", true))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
