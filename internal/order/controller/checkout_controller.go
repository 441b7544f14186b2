package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/domain"
	"bazaar/internal/dto"
	apperrors "bazaar/internal/errors"
	"bazaar/internal/order/idempotency"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxItems    = 100
	maxQuantity = 10000
)

type CheckoutUseCase interface {
	Checkout(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error)
	Preview(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.OrderPreview, error)
}

type ListOrdersUseCase interface {
	ListMyOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type CheckoutController struct {
	checkout CheckoutUseCase
	orders   ListOrdersUseCase
	logger   *zap.Logger
}

func NewCheckoutController(checkout CheckoutUseCase, orders ListOrdersUseCase, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
	}
}

func (c *CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	cmd, ok := c.decodeCommand(w, r, traceID, logger)
	if !ok {
		return
	}
	cmd.IdempotencyKey = idempotency.KeyFromRequest(r)

	result, err := c.checkout.Checkout(r.Context(), cmd)
	if err != nil {
		c.handleUseCaseError(w, traceID, result, err, logger)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	resp := toOrderResponse(*result.Order)
	resp.TraceID = traceID
	resp.CheckoutState = string(result.State)
	resp.Replayed = result.Replayed
	c.writeJSON(w, status, resp)
}

func (c *CheckoutController) Preview(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	cmd, ok := c.decodeCommand(w, r, traceID, logger)
	if !ok {
		return
	}

	preview, err := c.checkout.Preview(r.Context(), cmd)
	if err != nil {
		c.handleUseCaseError(w, traceID, nil, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.PreviewResponse{
		TraceID:        traceID,
		Items:          toLineItemResponses(preview.Items),
		ItemsTotal:     preview.ItemsTotal,
		DeliveryCharge: preview.DeliveryCharge,
		TotalAmount:    preview.TotalAmount,
		PaymentMethod:  string(preview.PaymentMethod),
	})
}

func (c *CheckoutController) MyOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}

	orders, err := c.orders.ListMyOrders(r.Context(), identity.UserID)
	if err != nil {
		c.handleUseCaseError(w, traceID, nil, err, logger)
		return
	}

	resp := dto.OrderListResponse{TraceID: traceID, Orders: make([]dto.OrderResponse, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o)
	}
	c.writeJSON(w, http.StatusOK, resp)
}

// decodeCommand writes the error response itself and reports false when the
// request cannot be turned into a command.
func (c *CheckoutController) decodeCommand(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (dto.PlaceOrderCommand, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return dto.PlaceOrderCommand{}, false
	}

	var req dto.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return dto.PlaceOrderCommand{}, false
	}

	if err := validatePlaceOrderRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return dto.PlaceOrderCommand{}, false
	}

	items := make([]dto.LineItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.LineItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	method, _ := domain.ParsePaymentMethod(req.PaymentMethod)
	return dto.PlaceOrderCommand{
		UserID:          identity.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
	}, true
}

// validatePlaceOrderRequest checks request shape only. Stock, prices and the
// shipping address are the use case's business.
func validatePlaceOrderRequest(req dto.PlaceOrderRequest) error {
	var details []apperrors.ValidationDetail

	if len(req.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	if len(req.Items) > maxItems {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items exceeds maximum of 100",
		})
	}

	for idx, item := range req.Items {
		if item.ProductID == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].productId",
				Message: "productId is required",
			})
		}

		if item.Quantity < 1 || item.Quantity > maxQuantity {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].quantity",
				Message: "quantity must be between 1 and 10000",
			})
		}
	}

	if _, ok := domain.ParsePaymentMethod(req.PaymentMethod); !ok {
		details = append(details, apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "paymentMethod must be one of Card, UPI, COD",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func (c *CheckoutController) handleUseCaseError(w http.ResponseWriter, traceID string, result *dto.CheckoutResult, err error, logger *zap.Logger) {
	var state string
	if result != nil {
		state = string(result.State)
	}

	// Checked first: a partial commit also unwraps to its per-item causes.
	if pce, ok := apperrors.IsPartialCommitError(err); ok {
		logger.Error("checkout left stock partially committed",
			zap.String("orderId", pce.OrderID),
			zap.Any("applied", pce.Applied),
			zap.Any("failed", pce.Failed),
		)
		c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "CHECKOUT_FAILED",
			"we could not finish your order, please try again later",
			&dto.CheckoutErrorDetail{State: state})
		return
	}

	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	if pnf, ok := apperrors.IsProductNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(),
			&dto.CheckoutErrorDetail{ProductID: pnf.ProductID, State: state})
		return
	}

	if ise, ok := apperrors.IsInsufficientStockError(err); ok {
		available, requested := ise.Available, ise.Requested
		c.writeErrorResponse(w, traceID, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(),
			&dto.CheckoutErrorDetail{
				ProductID: ise.ProductID,
				Title:     ise.ProductTitle,
				Available: &available,
				Requested: &requested,
				State:     state,
			})
		return
	}

	if _, ok := apperrors.IsInvalidAddressError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "INVALID_ADDRESS", err.Error(),
			&dto.CheckoutErrorDetail{State: state})
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error(), nil)
		return
	}

	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("checkout timed out", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusGatewayTimeout, "TIMEOUT",
			"the request took too long, please try again", &dto.CheckoutErrorDetail{State: state})
		return
	}

	if _, ok := apperrors.IsPersistenceError(err); ok {
		logger.Error("persistence failure", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"something went wrong, please try again", &dto.CheckoutErrorDetail{State: state})
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred",
		&dto.CheckoutErrorDetail{State: state})
}

func toOrderResponse(o domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           toLineItemResponses(o.Items),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		DeliveryCharge:  o.DeliveryCharge,
		IsPaid:          o.IsPaid,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
}

func toLineItemResponses(items []domain.LineItem) []dto.LineItemResponse {
	out := make([]dto.LineItemResponse, len(items))
	for i, item := range items {
		out[i] = dto.LineItemResponse{
			ProductID: item.ProductID,
			Title:     item.ProductTitle,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		}
	}
	return out
}

func (c *CheckoutController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string, details *dto.CheckoutErrorDetail) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Message:   message,
		Code:      code,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	c.writeJSON(w, statusCode, response)
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *CheckoutController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	response := validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	}

	c.writeJSON(w, http.StatusBadRequest, response)
}

func (c *CheckoutController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
