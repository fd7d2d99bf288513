package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a Redis-backed Limiter so budgets hold across replicas.
// It uses a fixed window (INCR + EXPIRE) rather than the in-memory
// sliding window; at these budgets the difference doesn't matter.
//
// Fails open on Redis errors: blocking every login because Redis is down
// is worse than briefly losing the limit.
type RedisLimiter struct {
	client *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter. The prefix keeps routes
// with separate budgets in separate key spaces.
func NewRedisLimiter(client *redis.Client, config RateLimitConfig, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "sueno:ratelimit"
	}
	return &RedisLimiter{
		client: client,
		config: config,
		prefix: prefix,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(key string) (bool, int, time.Duration) {
	ctx := context.Background()
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	if count > l.config.RequestsPerWindow {
		retryAfter := l.config.WindowDuration
		if ttl, err := l.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return false, 0, retryAfter
	}

	return true, l.config.RequestsPerWindow - count, l.config.WindowDuration
}
