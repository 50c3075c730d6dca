package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const (
	itemPrefix = "reminders:item:"
	indexKey   = "reminders:ids"
)

// ReminderRepository хранит каждое напоминание JSON-строкой, а множество
// идентификаторов служит индексом для загрузки при старте.
type ReminderRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewReminderRepository(client *redis.Client, logger *slog.Logger) *ReminderRepository {
	return &ReminderRepository{
		client: client,
		logger: logger,
	}
}

func (r *ReminderRepository) Persist(ctx context.Context, reminder *models.Reminder) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации напоминания: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemPrefix+reminder.ID, data, 0)
		pipe.SAdd(ctx, indexKey, reminder.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка при сохранении напоминания в Redis: %w", err)
	}

	return nil
}

func (r *ReminderRepository) Remove(ctx context.Context, id string) error {
	return r.RemoveMany(ctx, []string{id})
}

func (r *ReminderRepository) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))

	for i, id := range ids {
		keys[i] = itemPrefix + id
		members[i] = id
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, indexKey, members...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка при удалении напоминаний из Redis: %w", err)
	}

	return nil
}

func (r *ReminderRepository) LoadAllActive(ctx context.Context) ([]models.Reminder, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	active := all[:0]

	for _, reminder := range all {
		if reminder.State == models.StateActive || reminder.State == models.StateFired {
			active = append(active, reminder)
		}
	}

	return active, nil
}

func (r *ReminderRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	var stale []string

	for _, reminder := range all {
		if reminder.State != models.StateCompleted && reminder.State != models.StateCancelled {
			continue
		}

		if reminder.UpdatedAt.Before(cutoff) {
			stale = append(stale, reminder.ID)
		}
	}

	if err := r.RemoveMany(ctx, stale); err != nil {
		return 0, err
	}

	return int64(len(stale)), nil
}

func (r *ReminderRepository) loadAll(ctx context.Context) ([]models.Reminder, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении индекса напоминаний из Redis: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении напоминаний из Redis: %w", err)
	}

	reminders := make([]models.Reminder, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			r.logger.Warn("Напоминание из индекса отсутствует в Redis", "id", ids[i])
			continue
		}

		var reminder models.Reminder
		if err := json.Unmarshal([]byte(raw), &reminder); err != nil {
			r.logger.Error("Ошибка при десериализации напоминания из Redis",
				"error", err,
				"id", ids[i],
			)

			continue
		}

		reminders = append(reminders, reminder)
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].CreatedAt.Before(reminders[j].CreatedAt)
	})

	return reminders, nil
}
