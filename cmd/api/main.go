package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resale-backend/api/routes"
	"github.com/angelmondragon/resale-backend/internal/cart"
	"github.com/angelmondragon/resale-backend/internal/checkout"
	"github.com/angelmondragon/resale-backend/internal/cron"
	"github.com/angelmondragon/resale-backend/internal/fulfillment"
	"github.com/angelmondragon/resale-backend/internal/inventory"
	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/internal/outlets"
	"github.com/angelmondragon/resale-backend/internal/payments"
	"github.com/angelmondragon/resale-backend/internal/products"
	"github.com/angelmondragon/resale-backend/internal/users"
	stripewebhook "github.com/angelmondragon/resale-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/db"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/angelmondragon/resale-backend/pkg/migrate"
	"github.com/angelmondragon/resale-backend/pkg/pubsub"
	"github.com/angelmondragon/resale-backend/pkg/redis"
	"github.com/angelmondragon/resale-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	requireResource(logg, "stripe client", err)

	var pubsubClient *pubsub.Client
	if cfg.Notify.Driver == notifications.DriverPubSub {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		requireResource(logg, "pubsub client", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)
	gormDB := dbClient.DB()

	ledger, err := inventory.NewLedger(inventory.LedgerParams{
		Repo:    inventory.NewRepository(gormDB),
		Logger:  logg,
		Metrics: orderMetrics,
	})
	requireResource(logg, "inventory ledger", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(gormDB),
		Products: products.NewRepository(gormDB),
		Tx:       dbClient,
		Ledger:   ledger,
		Logger:   logg,
		Metrics:  orderMetrics,
	})
	requireResource(logg, "orders service", err)

	gateway, err := notifications.NewGateway(cfg.Notify.Driver, notifications.GatewayDeps{
		Logger:    logg,
		Sendgrid:  cfg.Sendgrid,
		Publisher: func() *gcppubsub.Publisher {
			return pubsubClient.NotificationPublisher()
		},
	})
	requireResource(logg, "notification gateway", err)

	outletRepo := outlets.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	notifier, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Gateway: gateway,
		Users:   users.NewRepository(gormDB),
		Outlets: outletRepo,
		Logger:  logg,
		Metrics: orderMetrics,
		Timeout: cfg.Notify.Timeout,
	})
	requireResource(logg, "notification dispatcher", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Orders:   ordersService,
		Sessions: stripeClient,
		Outlets:  outletRepo,
		Carts:    cartRepo,
		Notifier: notifier,
		Logger:   logg,
		BaseURL:  cfg.Checkout.BaseURL,
		Currency: cfg.Checkout.Currency,
	})
	requireResource(logg, "checkout service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:   ordersService,
		Carts:    cartRepo,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  orderMetrics,
	})
	requireResource(logg, "payments service", err)

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Orders:   ordersService,
		Notifier: notifier,
		Logger:   logg,
	})
	requireResource(logg, "fulfillment service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentsService,
		Logger:   logg,
	})
	requireResource(logg, "stripe webhook service", err)

	eventGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Stripe.EventTTL)
	requireResource(logg, "stripe event guard", err)

	sweeper, err := cron.NewAbandonmentJob(cron.AbandonmentJobParams{
		Logger:      logg,
		Orders:      ordersService,
		Sessions:    stripeClient,
		Payments:    paymentsService,
		Notifier:    notifier,
		GracePeriod: cfg.Sweeper.GracePeriod,
		BatchSize:   cfg.Sweeper.BatchSize,
	})
	requireResource(logg, "abandonment sweeper", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"stripe_env":    stripeClient.Environment(),
		"notify_driver": cfg.Notify.Driver,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(routes.Dependencies{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Metrics:      registry,
		Checkout:     checkoutService,
		Orders:       ordersService,
		Fulfillment:  fulfillmentService,
		Sweeper:      sweeper,
		StripeClient: stripeClient,
		StripeEvents: webhookService,
		StripeGuard:  eventGuard,
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "resource", name), "failed to bootstrap resource", err)
	os.Exit(1)
}
