package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window counter: at most Max hits per key within Period,
// measured from the first hit.
type Window struct {
	redis  redis.UniversalClient
	prefix string
	max    int
	period time.Duration
}

// NewWindow creates a [Window] storing its counters under prefix:key.
func NewWindow(rdb redis.UniversalClient, prefix string, max int, period time.Duration) *Window {
	return &Window{
		redis:  rdb,
		prefix: prefix,
		max:    max,
		period: period,
	}
}

// Hit counts one attempt for key and returns ErrRateLimited once the budget
// for the current window is exceeded.
func (w *Window) Hit(ctx context.Context, key string) error {
	if w == nil || w.max <= 0 {
		return nil
	}
	count, err := w.incrementWithTTL(ctx, w.key(key))
	if err != nil {
		return err
	}
	if count > int64(w.max) {
		return ErrRateLimited
	}
	return nil
}

// Remaining reports how many hits are left for key in the current window.
func (w *Window) Remaining(ctx context.Context, key string) (int, error) {
	if w == nil || w.max <= 0 {
		return 0, nil
	}
	n, err := w.redis.Get(ctx, w.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return w.max, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if left := int64(w.max) - n; left > 0 {
		return int(left), nil
	}
	return 0, nil
}

// Reset clears the counter for key.
func (w *Window) Reset(ctx context.Context, key string) error {
	if w == nil {
		return nil
	}
	if err := w.redis.Del(ctx, w.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (w *Window) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := w.redis.Expire(ctx, key, w.period).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func (w *Window) key(k string) string {
	return w.prefix + ":" + k
}
