package sql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-reminders/internal/database"
	customerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/pkg/txs"
)

const removeBatchSize = 500

const selectColumns = `id, owner_id, group_id, origin_channel_id, kind, trigger, message,
	recurrence, state, triggered_count, created_at, updated_at`

type ReminderRepository struct {
	db        *database.PostgresDB
	txManager *txs.TxManager
}

func NewReminderRepository(db *database.PostgresDB, txManager *txs.TxManager) *ReminderRepository {
	return &ReminderRepository{
		db:        db,
		txManager: txManager,
	}
}

func (r *ReminderRepository) Persist(ctx context.Context, reminder *models.Reminder) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	trigger, err := json.Marshal(reminder.Trigger)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации триггера: %w", err)
	}

	_, err = querier.Exec(ctx, `
		INSERT INTO reminders (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			trigger = EXCLUDED.trigger,
			message = EXCLUDED.message,
			recurrence = EXCLUDED.recurrence,
			state = EXCLUDED.state,
			triggered_count = EXCLUDED.triggered_count,
			updated_at = EXCLUDED.updated_at
	`,
		reminder.ID,
		reminder.OwnerID,
		reminder.GroupID,
		reminder.OriginChannelID,
		string(reminder.Kind),
		trigger,
		reminder.Message,
		string(reminder.Recurrence),
		string(reminder.State),
		reminder.TriggeredCount,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение напоминания", Cause: err}
	}

	return nil
}

func (r *ReminderRepository) Remove(ctx context.Context, id string) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if _, err := querier.Exec(ctx, "DELETE FROM reminders WHERE id = $1", id); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление напоминания", Cause: err}
	}

	return nil
}

// RemoveMany удаляет напоминания пачками в одной транзакции.
func (r *ReminderRepository) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		for start := 0; start < len(ids); start += removeBatchSize {
			end := min(start+removeBatchSize, len(ids))

			if _, err := querier.Exec(ctx, "DELETE FROM reminders WHERE id = ANY($1)", ids[start:end]); err != nil {
				return &customerrors.ErrSQLExecution{Operation: "пакетное удаление напоминаний", Cause: err}
			}
		}

		return nil
	})
}

// LoadAllActive возвращает напоминания, которые должны продолжить работу после перезапуска.
func (r *ReminderRepository) LoadAllActive(ctx context.Context) ([]models.Reminder, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx, `
		SELECT `+selectColumns+`
		FROM reminders
		WHERE state IN ($1, $2)
		ORDER BY created_at
	`, string(models.StateActive), string(models.StateFired))
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "загрузка активных напоминаний", Cause: err}
	}
	defer rows.Close()

	var reminders []models.Reminder

	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}

		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "загрузка активных напоминаний", Cause: err}
	}

	return reminders, nil
}

// PurgeInactive удаляет завершённые и отменённые напоминания, обновлённые раньше cutoff.
func (r *ReminderRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx,
		"DELETE FROM reminders WHERE state IN ($1, $2) AND updated_at < $3",
		string(models.StateCompleted), string(models.StateCancelled), cutoff)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "очистка устаревших напоминаний", Cause: err}
	}

	return tag.RowsAffected(), nil
}

func scanReminder(row pgx.Row) (models.Reminder, error) {
	var (
		reminder   models.Reminder
		kind       string
		trigger    []byte
		recurrence string
		state      string
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.OwnerID,
		&reminder.GroupID,
		&reminder.OriginChannelID,
		&kind,
		&trigger,
		&reminder.Message,
		&recurrence,
		&state,
		&reminder.TriggeredCount,
		&reminder.CreatedAt,
		&reminder.UpdatedAt,
	)
	if err != nil {
		return models.Reminder{}, &customerrors.ErrSQLScan{Entity: "напоминание", Cause: err}
	}

	if err := json.Unmarshal(trigger, &reminder.Trigger); err != nil {
		return models.Reminder{}, &customerrors.ErrSQLScan{Entity: "триггер напоминания", Cause: err}
	}

	reminder.Kind = models.Kind(kind)
	reminder.Recurrence = models.Recurrence(recurrence)
	reminder.State = models.State(state)

	return reminder, nil
}
