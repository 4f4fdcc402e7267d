// Package cache provides the Redis read-through cache for citizen tracking
// lookups, the hottest read path of the service.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/persistence"
)

const trackingKeyPrefix = "grievance:track:"

// TrackingCache caches grievance snapshots keyed by tracking token. All
// operations degrade to no-ops when Redis is unreachable; the database stays
// the source of truth.
type TrackingCache struct {
	redis  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewTrackingCache builds the cache.
func NewTrackingCache(r *persistence.Redis, ttl time.Duration, logger *zap.Logger) *TrackingCache {
	return &TrackingCache{redis: r, ttl: ttl, logger: logger}
}

// Get returns a cached snapshot, or (nil, false) on miss or Redis failure.
func (c *TrackingCache) Get(ctx context.Context, token string) (*domain.Grievance, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil || c.ttl <= 0 {
		return nil, false
	}
	raw, err := c.redis.Client.Get(ctx, trackingKeyPrefix+token).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("tracking cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var grievance domain.Grievance
	if err := json.Unmarshal(raw, &grievance); err != nil {
		c.logger.Warn("tracking cache entry corrupt", zap.String("token", token), zap.Error(err))
		return nil, false
	}
	return &grievance, true
}

// Set stores a snapshot with the configured TTL.
func (c *TrackingCache) Set(ctx context.Context, grievance *domain.Grievance) {
	if c == nil || c.redis == nil || c.redis.Client == nil || c.ttl <= 0 || grievance == nil {
		return
	}
	raw, err := json.Marshal(grievance)
	if err != nil {
		return
	}
	if err := c.redis.Client.Set(ctx, trackingKeyPrefix+grievance.TrackingToken, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("tracking cache write failed", zap.Error(err))
	}
}

// Invalidate drops the snapshot for a token after a mutation.
func (c *TrackingCache) Invalidate(ctx context.Context, token string) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Del(ctx, trackingKeyPrefix+token).Err(); err != nil {
		c.logger.Warn("tracking cache invalidate failed", zap.Error(err))
	}
}
