// Package ratelimit bounds citizen submission rates with a Redis fixed
// window counter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/config"
	"github.com/civicgov/grievance-service/internal/persistence"
)

const keyPrefix = "grievance:submit:"

// Limiter counts submissions per client key within a fixed window. It fails
// open: when Redis is unreachable the submission proceeds.
type Limiter struct {
	redis  *persistence.Redis
	cfg    config.RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter builds the limiter.
func NewLimiter(r *persistence.Redis, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	return &Limiter{redis: r, cfg: cfg, logger: logger, now: time.Now}
}

// Allow reports whether the client identified by key may submit now.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || !l.cfg.Enabled || l.cfg.MaxPerWindow <= 0 {
		return true
	}
	if l.redis == nil || l.redis.Client == nil {
		return true
	}

	redisKey := WindowKey(key, l.now(), l.cfg.Window())
	count, err := l.redis.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
		return true
	}
	if count == 1 {
		// First hit in the window owns the key expiry.
		if err := l.redis.Client.Expire(ctx, redisKey, l.cfg.Window()).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.cfg.MaxPerWindow)
}

// WindowKey derives the fixed-window Redis key for a client key at time t.
func WindowKey(key string, t time.Time, window time.Duration) string {
	bucket := t.Unix() / int64(window.Seconds())
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket)
}
