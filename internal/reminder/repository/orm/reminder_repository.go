package orm

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/central-university-dev/go-reminders/internal/database"
	customerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/pkg/txs"
)

const removeBatchSize = 500

var reminderColumns = []string{
	"id",
	"owner_id",
	"group_id",
	"origin_channel_id",
	"kind",
	"trigger",
	"message",
	"recurrence",
	"state",
	"triggered_count",
	"created_at",
	"updated_at",
}

type ReminderRepository struct {
	db        *database.PostgresDB
	txManager *txs.TxManager
	sq        sq.StatementBuilderType
}

func NewReminderRepository(db *database.PostgresDB, txManager *txs.TxManager) *ReminderRepository {
	return &ReminderRepository{
		db:        db,
		txManager: txManager,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ReminderRepository) Persist(ctx context.Context, reminder *models.Reminder) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	trigger, err := json.Marshal(reminder.Trigger)
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сериализация триггера", Cause: err}
	}

	upsertQuery := r.sq.Insert("reminders").
		Columns(reminderColumns...).
		Values(
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
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			trigger = EXCLUDED.trigger,
			message = EXCLUDED.message,
			recurrence = EXCLUDED.recurrence,
			state = EXCLUDED.state,
			triggered_count = EXCLUDED.triggered_count,
			updated_at = EXCLUDED.updated_at`)

	query, args, err := upsertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение напоминания", Cause: err}
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение напоминания", Cause: err}
	}

	return nil
}

func (r *ReminderRepository) Remove(ctx context.Context, id string) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Delete("reminders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление напоминания", Cause: err}
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление напоминания", Cause: err}
	}

	return nil
}

func (r *ReminderRepository) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		for start := 0; start < len(ids); start += removeBatchSize {
			end := min(start+removeBatchSize, len(ids))

			// sq.Eq со срезом строит условие id IN (...).
			query, args, err := r.sq.Delete("reminders").
				Where(sq.Eq{"id": ids[start:end]}).
				ToSql()
			if err != nil {
				return &customerrors.ErrBuildSQLQuery{Operation: "пакетное удаление напоминаний", Cause: err}
			}

			if _, err := querier.Exec(ctx, query, args...); err != nil {
				return &customerrors.ErrSQLExecution{Operation: "пакетное удаление напоминаний", Cause: err}
			}
		}

		return nil
	})
}

func (r *ReminderRepository) LoadAllActive(ctx context.Context) ([]models.Reminder, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Select(reminderColumns...).
		From("reminders").
		Where(sq.Eq{"state": []string{string(models.StateActive), string(models.StateFired)}}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "загрузка активных напоминаний", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "загрузка активных напоминаний", Cause: err}
	}
	defer rows.Close()

	var reminders []models.Reminder

	for rows.Next() {
		var (
			reminder                models.Reminder
			kind, recurrence, state string
			trigger                 []byte
		)

		err := rows.Scan(
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
			return nil, &customerrors.ErrSQLScan{Entity: "напоминание", Cause: err}
		}

		if err := json.Unmarshal(trigger, &reminder.Trigger); err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "триггер напоминания", Cause: err}
		}

		reminder.Kind = models.Kind(kind)
		reminder.Recurrence = models.Recurrence(recurrence)
		reminder.State = models.State(state)

		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "загрузка активных напоминаний", Cause: err}
	}

	return reminders, nil
}

func (r *ReminderRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Delete("reminders").
		Where(sq.And{
			sq.Eq{"state": []string{string(models.StateCompleted), string(models.StateCancelled)}},
			sq.Lt{"updated_at": cutoff},
		}).
		ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "очистка устаревших напоминаний", Cause: err}
	}

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "очистка устаревших напоминаний", Cause: err}
	}

	return tag.RowsAffected(), nil
}
