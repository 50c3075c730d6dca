package ratelimit_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-reminders/internal/common/ratelimit"
)

func newLimiter(requests int, window time.Duration) (*ratelimit.KeyedLimiter, clock.FakeClock) {
	clk := clock.NewFake()
	clk.Set(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))

	return ratelimit.NewKeyedLimiter(requests, window, clk, slog.New(slog.NewTextHandler(io.Discard, nil))), clk
}

func TestKeyedLimiter_BurstThenBlock(t *testing.T) {
	// Arrange
	limiter, clk := newLimiter(2, time.Minute)

	// Act & Assert
	allowed, _ := limiter.Allow("U1")
	assert.True(t, allowed)

	allowed, _ = limiter.Allow("U1")
	assert.True(t, allowed)

	allowed, retryAfter := limiter.Allow("U1")
	assert.False(t, allowed)
	assert.InDelta(t, float64(30*time.Second), float64(retryAfter), float64(time.Millisecond))

	clk.Add(31 * time.Second)

	allowed, _ = limiter.Allow("U1")
	assert.True(t, allowed)
}

func TestKeyedLimiter_KeysAreIndependent(t *testing.T) {
	// Arrange
	limiter, _ := newLimiter(1, time.Minute)

	// Act
	first, _ := limiter.Allow("U1")
	blocked, _ := limiter.Allow("U1")
	other, _ := limiter.Allow("U2")

	// Assert
	assert.True(t, first)
	assert.False(t, blocked)
	assert.True(t, other)
}

func TestKeyedLimiter_Cleanup(t *testing.T) {
	// Arrange
	limiter, clk := newLimiter(1, time.Minute)
	limiter.Allow("U1")
	clk.Add(30 * time.Minute)
	limiter.Allow("U2")

	// Act
	clk.Add(31 * time.Minute)
	removed := limiter.Cleanup()

	// Assert
	assert.Equal(t, 1, removed)
}
