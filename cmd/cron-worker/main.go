package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resale-backend/internal/cart"
	"github.com/angelmondragon/resale-backend/internal/cron"
	"github.com/angelmondragon/resale-backend/internal/inventory"
	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/internal/outlets"
	"github.com/angelmondragon/resale-backend/internal/payments"
	"github.com/angelmondragon/resale-backend/internal/products"
	"github.com/angelmondragon/resale-backend/internal/users"
	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/db"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/angelmondragon/resale-backend/pkg/migrate"
	"github.com/angelmondragon/resale-backend/pkg/pubsub"
	"github.com/angelmondragon/resale-backend/pkg/redis"
	"github.com/angelmondragon/resale-backend/pkg/stripe"
)

func main() {
	once := flag.String("once", "", "run the named job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
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
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
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

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
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

	notifier, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Gateway: gateway,
		Users:   users.NewRepository(gormDB),
		Outlets: outlets.NewRepository(gormDB),
		Logger:  logg,
		Metrics: orderMetrics,
		Timeout: cfg.Notify.Timeout,
	})
	requireResource(logg, "notification dispatcher", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:   ordersService,
		Carts:    cart.NewRepository(gormDB),
		Notifier: notifier,
		Logger:   logg,
		Metrics:  orderMetrics,
	})
	requireResource(logg, "payments service", err)

	abandonment, err := cron.NewAbandonmentJob(cron.AbandonmentJobParams{
		Logger:      logg,
		Orders:      ordersService,
		Sessions:    stripeClient,
		Payments:    paymentsService,
		Notifier:    notifier,
		GracePeriod: cfg.Sweeper.GracePeriod,
		BatchSize:   cfg.Sweeper.BatchSize,
	})
	requireResource(logg, "abandonment job", err)

	lease, err := cron.NewRedisLease(redisClient, redisClient.LockKey(leaseName(cfg.App.Env)), cfg.Sweeper.LockTTL)
	requireResource(logg, "cron lease", err)

	registry, err := cron.NewRegistry(abandonment)
	requireResource(logg, "cron registry", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lease:    lease,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweeper.Interval,
	})
	requireResource(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	if *once != "" {
		if err := service.RunOnce(ctx, *once); err != nil {
			logg.Error(logg.WithField(ctx, "job", *once), "one-off job failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func leaseName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "resource", name), "failed to bootstrap resource", err)
	os.Exit(1)
}
