package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"bazaar/internal/contracts"
	"bazaar/internal/domain"
	"bazaar/internal/dto"
	apperrors "bazaar/internal/errors"
	"bazaar/internal/order/idempotency"
	"bazaar/internal/payment"
	"bazaar/internal/reconcile"

	"go.uber.org/zap"
)

type StockValidator interface {
	Validate(ctx context.Context, requests []dto.LineItemRequest) ([]domain.LineItem, error)
}

type OrderCreator interface {
	Create(ctx context.Context, userID string, items []domain.LineItem, shippingAddress string, method domain.PaymentMethod) (*domain.Order, error)
	DeliveryCharge() decimal.Decimal
}

type InventoryCommitter interface {
	Commit(ctx context.Context, orderID string, items []domain.LineItem) error
}

type PaymentGateway interface {
	Authorize(ctx context.Context, charge payment.Charge) (*payment.Receipt, error)
}

type OrderFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (idempotency.Record, bool, error)
	Complete(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type ReconciliationQueue interface {
	EnqueueAt(ctx context.Context, task reconcile.Task, at time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type CheckoutMetrics interface {
	ObserveCheckout(state, paymentMethod string, elapsed time.Duration)
	IncDecrementFailure()
}

type Option func(*PlaceOrderUseCase)

func WithIdempotency(store IdempotencyStore, ttl time.Duration) Option {
	return func(uc *PlaceOrderUseCase) {
		uc.idempotency = store
		uc.idempotencyTTL = ttl
	}
}

func WithReconciliationQueue(queue ReconciliationQueue) Option {
	return func(uc *PlaceOrderUseCase) { uc.queue = queue }
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(uc *PlaceOrderUseCase) { uc.publisher = publisher }
}

func WithMetrics(metrics CheckoutMetrics) Option {
	return func(uc *PlaceOrderUseCase) { uc.metrics = metrics }
}

// WithRequestTimeout bounds a whole checkout, payment wait included.
func WithRequestTimeout(d time.Duration) Option {
	return func(uc *PlaceOrderUseCase) { uc.requestTimeout = d }
}

const (
	sideEffectTimeout = 5 * time.Second
	// pendingMargin covers the committer timeout and the side effects that
	// run after the request deadline.
	pendingMargin = time.Minute
)

type PlaceOrderUseCase struct {
	validator        StockValidator
	creator          OrderCreator
	committer        InventoryCommitter
	gateway          PaymentGateway
	orders           OrderFinder
	logger           *zap.Logger
	maxRetryAttempts int

	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	queue          ReconciliationQueue
	publisher      EventPublisher
	metrics        CheckoutMetrics
	requestTimeout time.Duration
	now            func() time.Time
}

func NewPlaceOrderUseCase(
	validator StockValidator,
	creator OrderCreator,
	committer InventoryCommitter,
	gateway PaymentGateway,
	orders OrderFinder,
	logger *zap.Logger,
	maxRetryAttempts int,
	opts ...Option,
) *PlaceOrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}

	uc := &PlaceOrderUseCase{
		validator:        validator,
		creator:          creator,
		committer:        committer,
		gateway:          gateway,
		orders:           orders,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		publisher:        nopPublisher{},
		metrics:          nopMetrics{},
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Checkout is the buyer-facing entry point. COD orders go straight to
// PlaceOrder; Card and UPI orders are priced, sent through the payment
// gateway, and then placed with stock validated again.
func (uc *PlaceOrderUseCase) Checkout(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
	if uc.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.requestTimeout)
		defer cancel()
	}

	logger := uc.logger.With(zap.String("userId", cmd.UserID), zap.String("paymentMethod", string(cmd.PaymentMethod)))
	logger.Info("checkout started", zap.Int("itemCount", len(cmd.Items)))

	if cmd.IdempotencyKey == "" || uc.idempotency == nil {
		return uc.run(ctx, cmd, cmd.PaymentMethod.RequiresGateway())
	}

	key := idempotency.Scoped(cmd.UserID, cmd.IdempotencyKey)
	rec, reserved, err := uc.idempotency.Reserve(ctx, key, uc.pendingTTL())
	if err != nil {
		logger.Error("failed to reserve idempotency key", zap.Error(err))
		return &dto.CheckoutResult{State: dto.CheckoutFailed}, apperrors.NewPersistenceError("reserving idempotency key", err)
	}
	if !reserved {
		return uc.replay(ctx, rec, logger)
	}

	result, err := uc.run(ctx, cmd, cmd.PaymentMethod.RequiresGateway())

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if result.Order == nil {
		if releaseErr := uc.idempotency.Release(detached, key); releaseErr != nil {
			logger.Warn("failed to release idempotency key", zap.Error(releaseErr))
		}
		return result, err
	}

	done := idempotency.Record{OrderID: result.Order.ID, State: string(result.State)}
	if completeErr := uc.idempotency.Complete(detached, key, done, uc.idempotencyTTL); completeErr != nil {
		logger.Warn("failed to record idempotency key", zap.String("orderId", result.Order.ID), zap.Error(completeErr))
	}
	return result, err
}

// pendingTTL bounds how long an unfinished attempt holds its key, so a crash
// between Reserve and Complete does not block the key for the full TTL.
func (uc *PlaceOrderUseCase) pendingTTL() time.Duration {
	ttl := uc.requestTimeout + pendingMargin
	if uc.idempotencyTTL > 0 && uc.idempotencyTTL < ttl {
		return uc.idempotencyTTL
	}
	return ttl
}

func (uc *PlaceOrderUseCase) replay(ctx context.Context, rec idempotency.Record, logger *zap.Logger) (*dto.CheckoutResult, error) {
	if rec.InProgress() {
		logger.Info("duplicate checkout while first attempt is running")
		return &dto.CheckoutResult{State: dto.CheckoutRejected}, apperrors.NewConflictError("a checkout with this Idempotency-Key is already in progress")
	}

	order, err := uc.orders.FindByID(ctx, rec.OrderID)
	if err != nil {
		logger.Error("failed to load replayed order", zap.String("orderId", rec.OrderID), zap.Error(err))
		return &dto.CheckoutResult{State: dto.CheckoutFailed}, apperrors.NewPersistenceError("loading replayed order", err)
	}

	logger.Info("checkout replayed", zap.String("orderId", order.ID), zap.String("state", rec.State))
	return &dto.CheckoutResult{Order: order, State: dto.CheckoutState(rec.State), Replayed: true}, nil
}

// PlaceOrder runs the checkout state machine once, without the payment
// detour. The returned result is never nil and always carries the terminal
// state; Order is set whenever an order was persisted.
func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.CheckoutResult, error) {
	return uc.run(ctx, cmd, false)
}

// Preview validates the request against current stock and prices it. Nothing
// is persisted and stock is not touched.
func (uc *PlaceOrderUseCase) Preview(ctx context.Context, cmd dto.PlaceOrderCommand) (*dto.OrderPreview, error) {
	items, err := uc.validate(ctx, cmd)
	if err != nil {
		return nil, err
	}

	itemsTotal := domain.ItemsTotal(items)
	delivery := uc.creator.DeliveryCharge()

	return &dto.OrderPreview{
		Items:          items,
		ItemsTotal:     itemsTotal,
		DeliveryCharge: delivery,
		TotalAmount:    itemsTotal.Add(delivery),
		PaymentMethod:  cmd.PaymentMethod,
	}, nil
}

func (uc *PlaceOrderUseCase) run(ctx context.Context, cmd dto.PlaceOrderCommand, withPayment bool) (*dto.CheckoutResult, error) {
	start := uc.now()
	logger := uc.logger.With(zap.String("userId", cmd.UserID))
	tracker := newCheckoutTracker(logger, start)

	order, err := uc.execute(ctx, cmd, tracker, withPayment, logger)
	if err != nil {
		tracker.settle(err)
	}

	state := tracker.State()
	uc.metrics.ObserveCheckout(string(state), string(cmd.PaymentMethod), uc.now().Sub(start))

	fields := []zap.Field{
		zap.String("state", string(state)),
		zap.Duration("elapsed", uc.now().Sub(start)),
	}
	if order != nil {
		fields = append(fields, zap.String("orderId", order.ID))
	}
	switch state {
	case dto.CheckoutCompleted:
		logger.Info("checkout completed", fields...)
	case dto.CheckoutRejected:
		logger.Info("checkout rejected", append(fields, zap.Error(err))...)
	default:
		logger.Error("checkout failed", append(fields, zap.Error(err))...)
	}

	return &dto.CheckoutResult{Order: order, State: state}, err
}

func (uc *PlaceOrderUseCase) execute(
	ctx context.Context,
	cmd dto.PlaceOrderCommand,
	tracker *checkoutTracker,
	withPayment bool,
	logger *zap.Logger,
) (*domain.Order, error) {
	if withPayment {
		preview, err := uc.Preview(ctx, cmd)
		if err != nil {
			return nil, err
		}

		receipt, err := uc.gateway.Authorize(ctx, payment.Charge{
			UserID: cmd.UserID,
			Method: string(cmd.PaymentMethod),
			Amount: preview.TotalAmount,
		})
		if err != nil {
			return nil, fmt.Errorf("authorizing payment: %w", err)
		}
		logger.Info("payment authorized", zap.String("receiptId", receipt.ID))
	}

	// Stock may have moved during the payment wait, so validate again.
	items, err := uc.validate(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("checkout abandoned before order creation: %w", err)
	}

	if err := tracker.advance(dto.CheckoutCreating); err != nil {
		return nil, err
	}

	order, err := uc.createWithRetry(ctx, cmd, items, logger)
	if err != nil {
		return nil, err
	}

	if err := tracker.advance(dto.CheckoutCommitting); err != nil {
		return order, err
	}

	if err := uc.committer.Commit(ctx, order.ID, items); err != nil {
		uc.metrics.IncDecrementFailure()
		uc.scheduleReconciliation(ctx, order, err, logger)
		return order, err
	}

	if err := tracker.advance(dto.CheckoutCompleted); err != nil {
		return order, err
	}

	uc.publish(ctx, contracts.EventOrderPlaced, order, map[string]any{
		"userId":        order.UserID,
		"totalAmount":   order.TotalAmount.String(),
		"paymentMethod": string(order.PaymentMethod),
		"isPaid":        order.IsPaid,
		"items":         order.Items,
	}, logger)

	return order, nil
}

func (uc *PlaceOrderUseCase) validate(ctx context.Context, cmd dto.PlaceOrderCommand) ([]domain.LineItem, error) {
	if strings.TrimSpace(cmd.ShippingAddress) == "" {
		return nil, apperrors.NewInvalidAddressError("shipping address is required")
	}
	if _, ok := domain.ParsePaymentMethod(string(cmd.PaymentMethod)); !ok {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "paymentMethod must be one of Card, UPI, COD",
		})
	}

	return uc.validator.Validate(ctx, cmd.Items)
}

// createWithRetry retries order creation on MySQL deadlock or lock wait
// timeout. Nothing is persisted when those happen, so a retry cannot create
// a second order.
func (uc *PlaceOrderUseCase) createWithRetry(
	ctx context.Context,
	cmd dto.PlaceOrderCommand,
	items []domain.LineItem,
	logger *zap.Logger,
) (*domain.Order, error) {
	// attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), then 200ms
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	var lastErr error
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		order, err := uc.creator.Create(ctx, cmd.UserID, items, cmd.ShippingAddress, cmd.PaymentMethod)
		if err == nil {
			return order, nil
		}
		if !isDeadlockError(err) {
			return nil, err
		}

		lastErr = err
		if attempt == uc.maxRetryAttempts {
			break
		}

		base := backoffs[min(attempt, len(backoffs)-1)]
		// ±20% jitter
		wait := base + time.Duration(float64(base)*(rand.Float64()*0.4-0.2))
		logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.Duration("backoff", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperrors.NewPersistenceError("creating order", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, apperrors.NewPersistenceError("creating order",
		fmt.Errorf("%w: %w", apperrors.NewDeadlockError("max retries exceeded"), lastErr))
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

func (uc *PlaceOrderUseCase) scheduleReconciliation(ctx context.Context, order *domain.Order, commitErr error, logger *zap.Logger) {
	pce, ok := apperrors.IsPartialCommitError(commitErr)
	if !ok {
		return
	}

	uc.publish(ctx, contracts.EventReconciliationRequired, order, map[string]any{
		"applied": pce.Applied,
		"failed":  pce.Failed,
	}, logger)

	if uc.queue == nil {
		logger.Error("no reconciliation queue configured, stock needs manual repair",
			zap.String("orderId", order.ID),
			zap.Any("failed", pce.Failed),
		)
		return
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	now := uc.now()
	task := reconcile.NewTask(order.ID, pce.Failed, now)
	if err := uc.queue.EnqueueAt(detached, task, now); err != nil {
		logger.Error("failed to enqueue reconciliation task",
			zap.String("orderId", order.ID),
			zap.Any("failed", pce.Failed),
			zap.Error(err),
		)
		return
	}

	logger.Warn("reconciliation task enqueued", zap.String("orderId", order.ID), zap.String("taskId", task.ID))
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, eventType string, order *domain.Order, payload map[string]any, logger *zap.Logger) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	event := contracts.NewEvent(eventType, order.ID, payload, uc.now())
	if err := uc.publisher.Publish(detached, order.ID, event); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveCheckout(string, string, time.Duration) {}
func (nopMetrics) IncDecrementFailure()                          {}
