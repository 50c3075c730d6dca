package delivery_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
)

func TestRedisDeliveryLog(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	defer func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Logf("Ошибка при остановке Redis контейнера: %v", err)
		}
	}()

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	defer client.Close()

	require.NoError(t, client.Ping(ctx).Err())

	log := delivery.NewRedisDeliveryLog(client, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, ok, err := log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, log.Record(ctx, timerReminder()))

	recent, ok, err := log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pause", recent.Message)
	assert.Equal(t, "Europe/Paris", recent.Trigger.Timer.Timezone)

	time.Sleep(2 * time.Second)

	_, ok, err = log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, log.Record(ctx, timerReminder()))
	require.NoError(t, log.Forget(ctx, "r-1"))

	_, ok, err = log.Lookup(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
