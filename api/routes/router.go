package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/resale-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/resale-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/resale-backend/api/controllers/webhooks"
	"github.com/angelmondragon/resale-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/resale-backend/internal/checkout"
	"github.com/angelmondragon/resale-backend/internal/cron"
	"github.com/angelmondragon/resale-backend/internal/fulfillment"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	middleware.ReplayStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type stripeClient interface {
	SigningSecret() string
}

type orderQueries interface {
	List(ctx context.Context, query orders.ListQuery) (*orders.OrderList, error)
	Track(ctx context.Context, query orders.TrackQuery) (*orders.TrackingView, error)
}

type stripeEventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type sweeper interface {
	Sweep(ctx context.Context) (*cron.SweepSummary, error)
}

// Dependencies carries everything NewRouter wires into handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics prometheus.Gatherer

	Checkout     checkoutsvc.Service
	Orders       orderQueries
	Fulfillment  fulfillment.Service
	Sweeper      sweeper
	StripeClient stripeClient
	StripeEvents webhookcontrollers.StripeWebhookService
	StripeGuard  stripeEventGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var store middleware.ReplayStore
	var limiter middleware.RateLimitStore
	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		store = deps.Redis
		limiter = deps.Redis
		redisPinger = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkoutReplay := middleware.Idempotency(store, middleware.CheckoutReplayTTL, logg)
	transitionReplay := middleware.Idempotency(store, middleware.TransitionReplayTTL, logg)
	trackPolicy := middleware.NewRateLimitPolicy("track", cfg.RateLimit.TrackWindow, cfg.RateLimit.TrackLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeEvents, deps.StripeClient, deps.StripeGuard, logg))
	})

	r.Route("/api/public/orders", func(r chi.Router) {
		r.With(middleware.RateLimit(trackPolicy, limiter, logg)).Get("/track", ordercontrollers.Track(deps.Orders, logg))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.With(checkoutReplay).Post("/card", controllers.CheckoutCard(deps.Checkout, logg))
		r.With(checkoutReplay).Post("/pickup", controllers.CheckoutPickup(deps.Checkout, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/orders", ordercontrollers.BuyerList(deps.Orders, logg))

		r.Route("/seller/orders", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, enums.RoleSeller, enums.RoleCompany, enums.RoleAdmin))
			r.Get("/", ordercontrollers.SellerList(deps.Orders, logg))
			r.With(transitionReplay).Post("/{orderId}/process", ordercontrollers.Process(deps.Fulfillment, logg))
			r.With(transitionReplay).Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Fulfillment, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin))
		r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
		r.Post("/orders/sweep", controllers.AdminSweep(deps.Sweeper, logg))
	})

	return r
}
