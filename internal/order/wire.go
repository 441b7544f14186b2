package order

import (
	"context"

	"bazaar/internal/config"
	"bazaar/internal/domain"
	"bazaar/internal/order/controller"
	"bazaar/internal/order/service"
	"bazaar/internal/order/usecase"
	"bazaar/internal/payment"
	"bazaar/internal/product"

	"go.uber.org/zap"
)

// Store is what every order repository adapter provides.
type Store interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

func NewModule(
	catalog product.Catalog,
	orders Store,
	cfg config.OrderConfig,
	logger *zap.Logger,
	opts ...usecase.Option,
) *controller.CheckoutController {
	validator := service.NewStockValidator(catalog, logger)
	creator := service.NewOrderCreator(orders, cfg.DeliveryCharge, logger)
	committer := service.NewInventoryCommitter(catalog, cfg.RequestTimeout, logger)
	gateway := payment.NewSimulator(cfg.PaymentDelay, logger)

	opts = append([]usecase.Option{usecase.WithRequestTimeout(cfg.RequestTimeout)}, opts...)

	placeOrder := usecase.NewPlaceOrderUseCase(
		validator,
		creator,
		committer,
		gateway,
		orders,
		logger,
		cfg.MaxRetryAttempts,
		opts...,
	)
	listOrders := usecase.NewListOrdersUseCase(orders, logger)

	return controller.NewCheckoutController(placeOrder, listOrders, logger)
}
