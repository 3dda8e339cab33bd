package redis

import (
	"context"
	"time"

	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.Limiter = (*RateLimiter)(nil)

const rateLimitPrefix = "rate_limit:"

// RateLimiter is a fixed-window counter: INCR, and EXPIRE on the first hit.
// Keys are namespaced under rate_limit:.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = rateLimitPrefix + key
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}
