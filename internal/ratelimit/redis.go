package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard is a fixed-window counter backed by Redis, for multi-instance
// deployments where the count must be shared. INCR creates the key when
// missing; the first increment sets the window expiry.
type RedisGuard struct {
	client *redis.Client
	limit  int
	period time.Duration
}

// NewRedisGuard returns a guard allowing limit requests per period, counted in
// the given Redis client.
func NewRedisGuard(client *redis.Client, limit int, period time.Duration) *RedisGuard {
	return &RedisGuard{client: client, limit: limit, period: period}
}

// Allow counts the request and reports whether it is within the limit. Redis
// failures are logged and the request is allowed through, so an unavailable
// counter never locks out legitimate users.
func (g *RedisGuard) Allow(ctx context.Context, ip, endpoint string) bool {
	k := key(ip, endpoint)

	count, err := g.client.Incr(ctx, k).Result()
	if err != nil {
		log.Printf("ratelimit: redis incr %s failed: %v", k, err)
		return true
	}
	if count == 1 {
		if err := g.client.Expire(ctx, k, g.period).Err(); err != nil {
			log.Printf("ratelimit: redis expire %s failed: %v", k, err)
			return true
		}
	}
	return count <= int64(g.limit)
}
