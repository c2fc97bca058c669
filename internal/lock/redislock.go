package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired is returned when the lock could not be taken before MaxWait elapsed.
	ErrNotAcquired = errors.New("lock: not acquired")
	// ErrLost is the cancellation cause when the lock expired or changed owner while held.
	ErrLost = errors.New("lock: lost")
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

const extendScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`

// Locker serializes work per key using Redis SET NX with an owner token.
type Locker struct {
	R            redis.Cmdable
	Prefix       string
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock waits for a busy key; zero waits until ctx is done.
	MaxWait time.Duration
}

// Key returns the namespaced lock key for id.
func (l Locker) Key(id string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "lock:"
	}
	return prefix + id
}

// WithLock executes fn while holding the lock for id. The lock is released
// even if fn returns an error, and only by the holder that took it. While fn
// runs the lock TTL is renewed every ttl/3; if renewal finds the lock gone,
// fn's context is cancelled with ErrLost.
func (l Locker) WithLock(ctx context.Context, id string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	key := l.Key(id)
	token := uuid.NewString()

	var deadline <-chan time.Time
	if l.MaxWait > 0 {
		t := time.NewTimer(l.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), key, token)
			return l.hold(ctx, key, token, ttl, fn)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			return fmt.Errorf("%w: %s", ErrNotAcquired, key)
		case <-timer.C:
		}
	}
}

func (l Locker) hold(ctx context.Context, key, token string, ttl time.Duration, fn func(context.Context) error) error {
	fnCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	interval := ttl / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-fnCtx.Done():
				return
			case <-ticker.C:
				n, err := l.R.Eval(context.WithoutCancel(ctx), extendScript, []string{key}, token, ttlMillis).Int64()
				if err != nil {
					// transient store errors are retried on the next tick
					continue
				}
				if n == 0 {
					cancel(fmt.Errorf("%w: %s", ErrLost, key))
					return
				}
			}
		}
	}()

	err := fn(fnCtx)
	close(done)
	<-stopped
	return err
}

func (l Locker) release(ctx context.Context, key, token string) {
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
