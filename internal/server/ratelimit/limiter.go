// Package ratelimit throttles login attempts with fixed-window counters kept
// in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis failures. Callers treat it as "allow".
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter counts attempts per key within a fixed window.
type Limiter struct {
	redis       redis.Cmdable
	prefix      string
	maxAttempts int64
	window      time.Duration
}

// New returns a limiter that admits maxAttempts per key per window.
func New(client redis.Cmdable, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		redis:       client,
		prefix:      "carbonx:login:",
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (l *Limiter) key(k string) string { return l.prefix + k }

// Allow records one attempt against every key and reports whether all of
// them are still within budget. On Redis errors it returns true together with
// an error wrapping ErrUnavailable.
func (l *Limiter) Allow(ctx context.Context, keys ...string) (bool, error) {
	if l == nil || l.redis == nil || l.maxAttempts <= 0 {
		return true, nil
	}

	allowed := true
	for _, k := range keys {
		if k == "" {
			continue
		}
		count, err := l.redis.Incr(ctx, l.key(k)).Result()
		if err != nil {
			return true, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if count == 1 {
			if err := l.redis.Expire(ctx, l.key(k), l.window).Err(); err != nil {
				return true, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		if count > l.maxAttempts {
			allowed = false
		}
	}
	return allowed, nil
}

// Reset clears the counters for keys, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, keys ...string) error {
	if l == nil || l.redis == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, l.key(k))
		}
	}
	if len(full) == 0 {
		return nil
	}
	if err := l.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// NewClient parses a redis:// URL or a bare host:port and pings the server.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if u, err := redis.ParseURL(addr); err == nil {
		opts = u
	} else {
		opts = &redis.Options{Addr: addr}
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}
