package cart

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mall-cart/internal/pricing"
)

// Store persists cart snapshots in Redis, one key per shopper.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewStore constructs a snapshot store. A non-positive ttl keeps snapshots
// until they are overwritten.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, prefix: "cart:"}
}

func (s *Store) key(shopper string) string {
	return s.prefix + shopper
}

// Get restores the shopper's snapshot into agg. It reports whether a snapshot existed.
func (s *Store) Get(ctx context.Context, shopper string, agg *pricing.Aggregate) (bool, error) {
	if s == nil || s.client == nil || shopper == "" {
		return false, nil
	}
	data, err := s.client.Get(ctx, s.key(shopper)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := agg.Restore(data); err != nil {
		return false, err
	}
	return true, nil
}

// Put stores the aggregate snapshot and refreshes its TTL.
func (s *Store) Put(ctx context.Context, shopper string, agg *pricing.Aggregate) error {
	if s == nil || s.client == nil || shopper == "" {
		return nil
	}
	data, err := agg.Snapshot()
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(shopper), data, ttl).Err()
}

// Delete drops the shopper's snapshot.
func (s *Store) Delete(ctx context.Context, shopper string) error {
	if s == nil || s.client == nil || shopper == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(shopper)).Err()
}
