package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds gateway configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	LogFormat   string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	OrderServiceURL         string
	OrderServiceTimeout     time.Duration
	OrderServiceMaxAttempts int
	OrderServiceBackoff     time.Duration
	BreakerMinRequests      int
	BreakerFailureRatio     float64
	BreakerOpenFor          time.Duration

	CurrencyCode         string
	DisplayLocale        string
	CartTTL              time.Duration
	CartLockTTL          time.Duration
	SubmitConcurrency    int
	CouponRulesFile      string
	FallbackSampleOrders bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	CORSAllowedOrigins []string
	IdempotencyTTL     time.Duration
	SubmitRateLimit    string
	BodyLimitBytes     int64
	SecurityHeaders    bool

	MetricsNamespace string
	TracingExporter  string
	TracingEndpoint  string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:   valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:    valueOrDefault(k.String("LOG_LEVEL"), "info"),
		DatabaseURL: strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(k.String("REDIS_URL")),

		OrderServiceURL:         strings.TrimRight(valueOrDefault(k.String("ORDER_SERVICE_URL"), "http://localhost:9090"), "/"),
		OrderServiceTimeout:     parseDuration(k.String("ORDER_SERVICE_TIMEOUT"), "5s"),
		OrderServiceMaxAttempts: parseInt(k.String("ORDER_SERVICE_MAX_ATTEMPTS"), 3),
		OrderServiceBackoff:     parseDuration(k.String("ORDER_SERVICE_BACKOFF"), "200ms"),
		BreakerMinRequests:      parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio:     parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:          parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		CurrencyCode:         strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "LKR")),
		DisplayLocale:        valueOrDefault(k.String("DISPLAY_LOCALE"), "en-LK"),
		CartTTL:              parseDuration(k.String("CART_TTL"), "24h"),
		CartLockTTL:          parseDuration(k.String("CART_LOCK_TTL"), "30s"),
		SubmitConcurrency:    parseInt(k.String("SUBMIT_CONCURRENCY"), 4),
		CouponRulesFile:      strings.TrimSpace(k.String("COUPON_RULES_FILE")),
		FallbackSampleOrders: parseBoolDefault(k.String("FALLBACK_SAMPLE_ORDERS"), true),

		JWTSecret:   k.String("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(k.String("JWT_AUDIENCE")),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		SubmitRateLimit:    valueOrDefault(k.String("SUBMIT_RATE_LIMIT"), "10-M"),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS"), true),

		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "mallcart"),
		TracingExporter:  valueOrDefault(k.String("TRACING_EXPORTER"), "none"),
		TracingEndpoint:  strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if u, err := url.Parse(cfg.OrderServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ORDER_SERVICE_URL is invalid: %q", cfg.OrderServiceURL)
	}
	if cfg.SubmitConcurrency < 1 {
		return nil, errors.New("SUBMIT_CONCURRENCY must be at least 1")
	}
	if cfg.BreakerFailureRatio <= 0 || cfg.BreakerFailureRatio > 1 {
		return nil, errors.New("BREAKER_FAILURE_RATIO must be within (0, 1]")
	}
	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required in production")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "production", "prod":
		return true
	}
	return false
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
