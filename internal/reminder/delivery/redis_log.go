package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const deliveredKeyPrefix = "reminders:delivered:"

type RedisDeliveryLog struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisDeliveryLog(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisDeliveryLog {
	return &RedisDeliveryLog{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisDeliveryLog) Record(ctx context.Context, reminder models.Reminder) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации напоминания для Redis: %w", err)
	}

	if err := l.client.Set(ctx, deliveredKeyPrefix+reminder.ID, data, l.ttl).Err(); err != nil {
		l.logger.Error("Ошибка при сохранении доставленного напоминания в Redis",
			"error", err,
			"id", reminder.ID,
		)

		return fmt.Errorf("ошибка при сохранении данных в Redis: %w", err)
	}

	return nil
}

func (l *RedisDeliveryLog) Lookup(ctx context.Context, id string) (models.Reminder, bool, error) {
	data, err := l.client.Get(ctx, deliveredKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Reminder{}, false, nil
		}

		return models.Reminder{}, false, fmt.Errorf("ошибка при получении данных из Redis: %w", err)
	}

	var reminder models.Reminder
	if err := json.Unmarshal(data, &reminder); err != nil {
		return models.Reminder{}, false, fmt.Errorf("ошибка при десериализации данных из Redis: %w", err)
	}

	return reminder, true, nil
}

func (l *RedisDeliveryLog) Forget(ctx context.Context, id string) error {
	if err := l.client.Del(ctx, deliveredKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении данных из Redis: %w", err)
	}

	return nil
}
