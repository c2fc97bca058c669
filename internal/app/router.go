package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/audit"
	"github.com/noah-isme/mall-cart/internal/auth"
	"github.com/noah-isme/mall-cart/internal/cart"
	"github.com/noah-isme/mall-cart/internal/checkout"
	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/events"
	"github.com/noah-isme/mall-cart/internal/health"
	"github.com/noah-isme/mall-cart/internal/lock"
	"github.com/noah-isme/mall-cart/internal/obs"
	"github.com/noah-isme/mall-cart/internal/order"
	"github.com/noah-isme/mall-cart/internal/ratelimit"
	"github.com/noah-isme/mall-cart/internal/security"
)

// NewRouter assembles services and routes on top of d.
func NewRouter(d *Dependencies) http.Handler {
	cfg := d.Config

	notifiers := []events.Notifier{events.LogNotifier{Logger: d.Logger}}
	if d.DB != nil {
		notifiers = append(notifiers, audit.Ledger{DB: d.DB})
	}
	bus := &events.Bus{Notifiers: notifiers}

	cartSvc := &cart.Service{
		Store:             cart.NewStore(d.Redis, cfg.CartTTL),
		Locker:            lock.Locker{R: d.Redis, Prefix: "lock:cart:", MaxWait: cfg.CartLockTTL},
		Bind:              cart.BindClient(d.Orders),
		Policy:            d.Coupons,
		Currency:          cfg.CurrencyCode,
		Locale:            cfg.DisplayLocale,
		LockTTL:           cfg.CartLockTTL,
		SubmitConcurrency: cfg.SubmitConcurrency,
		SampleFallback:    cfg.FallbackSampleOrders,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}
	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{Carts: cartSvc, Events: bus}}
	orderHandler := &order.Handler{Bind: order.BindClient(d.Orders), Render: cartSvc}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{
		Secret:    []byte(cfg.JWTSecret),
		Validator: auth.TokenValidator{Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience},
	}}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	submitLimit := ratelimit.Handler{
		Limiter: d.Limiter,
		Key:     ratelimit.ShopperOrIP,
		Scope:   "submit",
		OnError: func(r *http.Request, err error) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limit store unavailable")
		},
	}

	probes := []health.Probe{
		{Name: "redis", Checker: health.Redis(d.Redis)},
		{Name: "order_service", Checker: health.HTTP(d.Probe, cfg.OrderServiceURL), Timeout: cfg.OrderServiceTimeout},
	}
	if d.DB != nil {
		probes = append(probes, health.Probe{Name: "database", Checker: health.Database(d.DB)})
	}
	healthHandler := health.Handler{Probes: probes}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMiddleware.RequireAuth)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/orders", cartHandler.AddOrder)
				g.Post("/orders/{orderId}/items", cartHandler.AddItem)
				g.Patch("/orders/{orderId}/items/{productId}", cartHandler.UpdateItem)
				g.Delete("/orders/{orderId}/items/{productId}", cartHandler.RemoveItem)
				g.Put("/orders/{orderId}/coupon", cartHandler.ApplyCoupon)
				g.Delete("/orders/{orderId}/coupon", cartHandler.RemoveCoupon)
				g.With(submitLimit.Middleware).Post("/submit", checkoutHandler.Submit)
			})
		})

		v.Get("/orders/history", orderHandler.History)
		v.Get("/orders/{orderId}", orderHandler.Get)
	})

	return r
}
