package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/civicgov/grievance-service/internal/config"
)

func TestWindowKeyStableWithinWindow(t *testing.T) {
	window := time.Minute
	base := time.Date(2026, 3, 14, 10, 30, 5, 0, time.UTC)

	k1 := WindowKey("203.0.113.9", base, window)
	k2 := WindowKey("203.0.113.9", base.Add(30*time.Second), window)
	k3 := WindowKey("203.0.113.9", base.Add(2*time.Minute), window)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestWindowKeySeparatesClients(t *testing.T) {
	now := time.Now()
	assert.NotEqual(t,
		WindowKey("203.0.113.9", now, time.Minute),
		WindowKey("198.51.100.4", now, time.Minute))
}

func TestAllowFailsOpenWithoutRedis(t *testing.T) {
	l := NewLimiter(nil, config.RateLimitConfig{Enabled: true, MaxPerWindow: 1, WindowSeconds: 60}, nil)
	assert.True(t, l.Allow(context.Background(), "203.0.113.9"))
}

func TestAllowDisabled(t *testing.T) {
	l := NewLimiter(nil, config.RateLimitConfig{Enabled: false}, nil)
	assert.True(t, l.Allow(context.Background(), "203.0.113.9"))
}
