package health

import (
	"context"
	"fmt"
	"net/http"

	redis "github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Redis probes a Redis client with PING.
func Redis(c redis.Cmdable) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return c.Ping(ctx).Err()
	})
}

// Database probes a connection pool.
func Database(p Pinger) Checker {
	return CheckerFunc(p.Ping)
}

// HTTP probes an upstream by issuing a GET against url. Any response below 500
// counts as reachable since the order service requires auth on most routes.
func HTTP(client *http.Client, url string) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return CheckerFunc(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		return nil
	})
}
