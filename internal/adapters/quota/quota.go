// Package quota enforces a per-user daily cap on issue creation.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a user may create another issue today
type Limiter interface {
	Allow(ctx context.Context, userID uint) (bool, error)
}

// Unlimited allows everything; used when Redis is not configured
type Unlimited struct{}

func (Unlimited) Allow(context.Context, uint) (bool, error) { return true, nil }

// counter is the subset of redis.Cmdable used by RedisLimiter
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter counts creations in a key that expires a day after the first one
type RedisLimiter struct {
	client counter
	limit  int64
	window time.Duration
}

// NewRedisLimiter connects to url (redis://...) and pings it
func NewRedisLimiter(ctx context.Context, url string, limit int) (*RedisLimiter, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedisLimiter(client, limit), client, nil
}

func newRedisLimiter(c counter, limit int) *RedisLimiter {
	return &RedisLimiter{client: c, limit: int64(limit), window: 24 * time.Hour}
}

func key(userID uint) string {
	return fmt.Sprintf("issue_limit:%d", userID)
}

// Allow increments the user's counter and reports whether it is within the limit
func (l *RedisLimiter) Allow(ctx context.Context, userID uint) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	k := key(userID)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	// πρώτη δημιουργία της ημέρας: ξεκινά το παράθυρο
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return count <= l.limit, nil
}
