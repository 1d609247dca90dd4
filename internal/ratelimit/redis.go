package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter shared by every instance using the same
// Redis database.
type Redis struct {
	client *redis.Client
	limit  int
	period time.Duration
	prefix string
}

// NewRedis allows limit requests per key in every period.
func NewRedis(client *redis.Client, limit int, period time.Duration) *Redis {
	return &Redis{client: client, limit: limit, period: period, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, r.period)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit pipeline: %w", err)
	}

	if incr.Val() > int64(r.limit) {
		retry := ttl.Val()
		if retry < 0 {
			retry = r.period
		}
		return false, retry, nil
	}
	return true, 0, nil
}
