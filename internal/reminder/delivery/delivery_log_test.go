package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
)

func TestMemoryDeliveryLog_ExpiresAfterTTL(t *testing.T) {
	// Arrange
	clk := newClock()
	log := delivery.NewMemoryDeliveryLog(10*time.Minute, clk)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, timerReminder()))

	// Act
	recent, ok, err := log.Lookup(ctx, "r-1")

	// Assert
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pause", recent.Message)

	clk.Add(10 * time.Minute)

	_, ok, err = log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDeliveryLog_Forget(t *testing.T) {
	clk := newClock()
	log := delivery.NewMemoryDeliveryLog(time.Hour, clk)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, timerReminder()))
	require.NoError(t, log.Forget(ctx, "r-1"))

	_, ok, err := log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
