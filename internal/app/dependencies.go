package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/mall-cart/internal/audit"
	"github.com/noah-isme/mall-cart/internal/config"
	"github.com/noah-isme/mall-cart/internal/coupon"
	"github.com/noah-isme/mall-cart/internal/obs"
	"github.com/noah-isme/mall-cart/internal/orderclient"
	"github.com/noah-isme/mall-cart/internal/ratelimit"
	"github.com/noah-isme/mall-cart/internal/resilience"
)

// Dependencies enumerates the long-lived clients shared across handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Redis   *redis.Client
	DB      *pgxpool.Pool
	Orders  *orderclient.Client
	Probe   *http.Client
	Limiter *limiter.Limiter
	Coupons coupon.Policy
	Metrics *obs.HTTPMetrics
	Tracing bool
}

// Connect dials Redis, the optional audit database and the order service.
// The database is skipped when DATABASE_URL is empty.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger, Tracing: cfg.TracingExporter != "none"}

	policy, err := loadCoupons(cfg.CouponRulesFile)
	if err != nil {
		return nil, err
	}
	d.Coupons = policy

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	d.Redis = redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(d.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(d.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.Redis.Ping(pingCtx).Err(); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if cfg.DatabaseURL != "" {
		if err := audit.Migrate(cfg.DatabaseURL); err != nil {
			d.Close()
			return nil, err
		}
		pool, err := newPool(pingCtx, cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.DB = pool
	}

	store, err := ratelimit.NewRedisStore(d.Redis, "ratelimit:")
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	if d.Limiter, err = ratelimit.NewLimiter(store, cfg.SubmitRateLimit); err != nil {
		d.Close()
		return nil, err
	}

	d.Orders, d.Probe = NewOrderClient(cfg, logger)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	d.Metrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)
	return d, nil
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "mall-cart"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewOrderClient builds the order service client behind the retrying,
// breaker-guarded transport. The returned plain client is for health probes.
func NewOrderClient(cfg *config.Config, logger zerolog.Logger) (*orderclient.Client, *http.Client) {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	httpClient := &http.Client{Transport: transport}
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("order-service").
		WithLogger(logger)
	doer := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     breaker,
		Target:      "order-service",
		BaseBackoff: cfg.OrderServiceBackoff,
		MaxAttempts: cfg.OrderServiceMaxAttempts,
		Jitter:      0.2,
		Timeout:     cfg.OrderServiceTimeout,
	}
	probe := &http.Client{Transport: transport, Timeout: cfg.OrderServiceTimeout}
	return orderclient.New(cfg.OrderServiceURL, doer, cfg.CurrencyCode), probe
}

func loadCoupons(path string) (coupon.Policy, error) {
	if path == "" {
		return coupon.Default(), nil
	}
	policy, err := coupon.PolicyFromFile(path)
	if err != nil {
		return coupon.Policy{}, fmt.Errorf("load coupon rules: %w", err)
	}
	return policy, nil
}

// Close releases every client opened by Connect.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
}
