package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"APP_ENV":                "",
		"REDIS_URL":              "redis://localhost:6379/0",
		"ORDER_SERVICE_URL":      "",
		"CURRENCY_CODE":          "",
		"DISPLAY_LOCALE":         "",
		"CART_TTL":               "",
		"SUBMIT_CONCURRENCY":     "",
		"BREAKER_FAILURE_RATIO":  "",
		"FALLBACK_SAMPLE_ORDERS": "",
		"JWT_SECRET":             "",
		"CORS_ALLOWED_ORIGINS":   "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9090", cfg.OrderServiceURL)
	require.Equal(t, "LKR", cfg.CurrencyCode)
	require.Equal(t, "en-LK", cfg.DisplayLocale)
	require.Equal(t, 24*time.Hour, cfg.CartTTL)
	require.Equal(t, 4, cfg.SubmitConcurrency)
	require.Equal(t, 0.5, cfg.BreakerFailureRatio)
	require.True(t, cfg.FallbackSampleOrders)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["ORDER_SERVICE_URL"] = "https://orders.example.com/"
	env["CURRENCY_CODE"] = "usd"
	env["CART_TTL"] = "90m"
	env["SUBMIT_CONCURRENCY"] = "8"
	env["FALLBACK_SAMPLE_ORDERS"] = "false"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example.com, https://admin.example.com"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "https://orders.example.com", cfg.OrderServiceURL)
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, 90*time.Minute, cfg.CartTTL)
	require.Equal(t, 8, cfg.SubmitConcurrency)
	require.False(t, cfg.FallbackSampleOrders)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")

	env = baseEnv()
	env["ORDER_SERVICE_URL"] = "not a url"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "ORDER_SERVICE_URL")

	env = baseEnv()
	env["SUBMIT_CONCURRENCY"] = "0"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "SUBMIT_CONCURRENCY")

	env = baseEnv()
	env["APP_ENV"] = "production"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "JWT_SECRET")
}
