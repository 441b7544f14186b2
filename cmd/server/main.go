package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"bazaar/internal/auth"
	"bazaar/internal/commons"
	"bazaar/internal/config"
	"bazaar/internal/domain"
	"bazaar/internal/infrastructure/kafka"
	"bazaar/internal/infrastructure/logger"
	"bazaar/internal/infrastructure/metrics"
	"bazaar/internal/infrastructure/mongo"
	"bazaar/internal/infrastructure/mysql"
	"bazaar/internal/infrastructure/redis"
	"bazaar/internal/order"
	"bazaar/internal/order/idempotency"
	orderrepo "bazaar/internal/order/repository"
	"bazaar/internal/order/usecase"
	"bazaar/internal/product"
	productrepo "bazaar/internal/product/repository"
	"bazaar/internal/reconcile"
	"bazaar/internal/server"

	"go.uber.org/zap"
)

type stores struct {
	products product.Store
	orders   order.Store
	close    func()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}

	cfg, err := commons.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	st, err := openStores(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("opening stores", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	m := metrics.New()

	var idem usecase.IdempotencyStore = idempotency.NewMemoryStore()
	var queue reconcile.Queue = reconcile.NewMemoryQueue()
	if cfg.Redis.URL != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb)
		queue = reconcile.NewRedisQueue(rdb)
		zapLogger.Info("redis connected")
	}

	opts := []usecase.Option{
		usecase.WithIdempotency(idem, cfg.Order.IdempotencyTTL),
		usecase.WithReconciliationQueue(queue),
		usecase.WithMetrics(m),
	}

	if brokers := kafka.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		publisher := kafka.NewPublisher(kafka.NewWriter(brokers, cfg.Kafka.Topic))
		defer publisher.Close()
		opts = append(opts, usecase.WithEventPublisher(publisher))
		zapLogger.Info("kafka publisher enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	productCtrl := product.NewModule(st.products, zapLogger)
	orderCtrl := order.NewModule(st.products, st.orders, cfg.Order, zapLogger, opts...)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	router := server.NewRouter(productCtrl, orderCtrl, verifier, m, zapLogger)

	srv := server.New(cfg.Server.Port, router, cfg.Order.RequestTimeout+5*time.Second, zapLogger)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	worker := reconcile.NewWorker(queue, st.products, cfg.Reconcile.Interval, cfg.Reconcile.MaxAttempts, m, zapLogger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout(cfg.Order.RequestTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	cancelWorker()
	<-workerDone

	zapLogger.Info("server stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongo.NewDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		orders := orderrepo.NewMongoOrderRepository(db)
		if err := orders.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		zapLogger.Info("mongo connected", zap.String("database", cfg.Mongo.Database))
		return &stores{
			products: productrepo.NewMongoRepository(db),
			orders:   orders,
			close:    func() { disconnectMongo(client) },
		}, nil

	case config.StoreMemory:
		zapLogger.Warn("using in-memory stores, data is lost on restart")
		var seed []domain.Product
		if cfg.Store.SeedPath != "" {
			products, err := productrepo.LoadSeed(cfg.Store.SeedPath)
			if err != nil {
				return nil, err
			}
			seed = products
			zapLogger.Info("memory catalog seeded", zap.String("path", cfg.Store.SeedPath), zap.Int("products", len(seed)))
		}
		return &stores{
			products: productrepo.NewMemoryRepository(seed...),
			orders:   orderrepo.NewMemoryOrderRepository(),
			close:    func() {},
		}, nil

	default:
		db, err := mysql.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		zapLogger.Info("database connected")
		return &stores{
			products: productrepo.NewMySQLRepository(db),
			orders:   orderrepo.NewMySQLOrderRepository(db),
			close:    func() { db.Close() },
		}, nil
	}
}

func disconnectMongo(client *mongodrv.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}
