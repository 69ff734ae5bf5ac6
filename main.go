package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tienda/internal/config"
	"tienda/internal/database"
	"tienda/internal/handlers"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/pkg/logger"
	"tienda/pkg/metrics"
	"tienda/pkg/paypal"
	"tienda/pkg/rabbitmq"
	"tienda/pkg/redislock"
	"tienda/pkg/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{
		ServiceName: "tienda",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := database.WaitReady(ctx, db, retry.Config{MaxAttempts: 5, Timeout: cfg.ReadTimeout, Delay: cfg.ReadRetryDelay}); err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	addressRepo := repositories.NewGORMAddressRepository(db)
	addOnRepo := repositories.NewGORMAddOnRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shop := metrics.NewShop(reg)

	checks := map[string]handlers.HealthCheck{"database": pingDB(db)}

	// --- Optional infrastructure ---
	var events services.EventPublisher = services.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			return fmt.Errorf("initialize rabbitmq: %w", err)
		}
		defer func() {
			if err := mq.Close(); err != nil {
				log.Warn(ctx, "failed to close rabbitmq", err)
			}
		}()
		events = mq
		if err := mq.ConsumeOrderEvents(ctx, orderEventHandler(log, shop)); err != nil {
			return fmt.Errorf("start order event consumer: %w", err)
		}
	} else {
		log.Info(ctx, "RABBITMQ_URL not set, order events are not published")
	}

	paymentDeps := services.PaymentServiceDeps{
		Orders:    orderRepo,
		Events:    events,
		Metrics:   shop,
		Log:       log,
		Currency:  cfg.Currency,
		ReturnURL: cfg.PayPal.ReturnURL,
		CancelURL: cfg.PayPal.CancelURL,
		BrandName: cfg.PayPal.BrandName,
	}
	if cfg.RedisURL != "" {
		locker, client, err := redislock.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("initialize redis: %w", err)
		}
		defer client.Close()
		paymentDeps.Locker = locker
		checks["redis"] = locker.Ping
	}
	if cfg.PayPal.Enabled() {
		paymentDeps.Gateway = paypal.NewClient(ctx, paypal.Config{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			BaseURL:      cfg.PayPal.BaseURL,
		})
	} else {
		log.Info(ctx, "PayPal credentials not set, PayPal checkout is disabled")
	}

	// --- Services ---
	readRetry := retry.ReadDefaults
	readRetry.Timeout = cfg.ReadTimeout
	readRetry.Delay = cfg.ReadRetryDelay

	shipping := services.NewShippingPolicy(cfg.ShippingFlatRate)
	orderService := services.NewOrderService(services.OrderServiceDeps{
		Tx:        repositories.NewGORMTransactor(db),
		Orders:    orderRepo,
		Products:  productRepo,
		Cart:      cartRepo,
		Users:     userRepo,
		Addresses: addressRepo,
		AddOns:    addOnRepo,
		Events:    events,
		Metrics:   shop,
		Log:       log,
		Shipping:  &shipping,
		ReadRetry: readRetry,
	})

	app := handlers.NewRouter(handlers.Deps{
		Auth:     services.NewAuthService(userRepo, cfg.JWTSecret, log),
		Products: services.NewProductService(productRepo),
		Catalog: services.NewCatalogService(
			repositories.NewGORMCategoryRepository(db),
			repositories.NewGORMBrandRepository(db),
			addOnRepo,
		),
		Cart:      services.NewCartService(cartRepo, productRepo, log),
		Orders:    orderService,
		Payments:  services.NewPaymentService(paymentDeps),
		Profile:   services.NewProfileService(userRepo, addressRepo, log),
		Log:       log,
		Gatherer:  reg,
		Checks:    checks,
		AccessLog: os.Stdout,
	})

	// --- HTTP server ---
	serveErr := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", cfg.AppPort), "starting server")
		serveErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error(context.Background(), "error during shutdown", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info(context.Background(), "server gracefully stopped")
	return nil
}

func pingDB(db *gorm.DB) handlers.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// orderEventHandler logs the order events seen on the broker. Bodies that are not an
// order event are dropped instead of requeued.
func orderEventHandler(log *logger.Logger, shop *metrics.Shop) rabbitmq.Handler {
	return func(ctx context.Context, routingKey string, body []byte) error {
		var ev services.OrderEvent
		if err := json.Unmarshal(body, &ev); err != nil || ev.OrderID == "" {
			log.Warn(log.WithField(ctx, "routing_key", routingKey), "dropping malformed order event", err)
			return rabbitmq.ErrDrop
		}
		shop.EventConsumed(routingKey)
		log.Info(log.WithFields(ctx, map[string]any{
			"routing_key":    routingKey,
			"order_id":       ev.OrderID,
			"order_number":   ev.OrderNumber,
			"status":         ev.Status,
			"payment_status": ev.PaymentStatus,
		}), "order event received")
		return nil
	}
}
