package repository_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/central-university-dev/go-reminders/internal/config"
	"github.com/central-university-dev/go-reminders/internal/database"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/repository"
	sqlrepo "github.com/central-university-dev/go-reminders/internal/reminder/repository/sql"
	"github.com/central-university-dev/go-reminders/pkg/txs"
)

func setupPostgres(ctx context.Context, t *testing.T, logger *slog.Logger) *database.PostgresDB {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("reminders"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "не удалось запустить контейнер postgres")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Не удалось остановить контейнер postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(dsn, "../../../migrations", logger))

	db, err := database.NewPostgresDB(ctx, &config.Config{DatabaseURL: dsn, DatabaseMaxConn: 5}, logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func sampleReminders(now time.Time) []models.Reminder {
	return []models.Reminder{
		{
			ID:              "timer-1",
			OwnerID:         "U1",
			OriginChannelID: "C1",
			Kind:            models.KindTimer,
			Trigger: models.Trigger{Timer: &models.TimerTrigger{
				FireAt:   now.Add(30 * time.Minute).UTC(),
				Timezone: "Europe/Paris",
			}},
			Message:    "Pause",
			Recurrence: models.RecurrenceDaily,
			State:      models.StateActive,
			CreatedAt:  now.Add(-2 * time.Minute),
			UpdatedAt:  now.Add(-2 * time.Minute),
		},
		{
			ID:              "reaction-1",
			OwnerID:         "U2",
			GroupID:         "G1",
			OriginChannelID: "C2",
			Kind:            models.KindReaction,
			Trigger: models.Trigger{Reaction: &models.ReactionTrigger{
				Emoji:     models.Emoji{Name: "party", ID: "123"},
				ChannelID: "C9",
			}},
			Message:        "Кто-то отреагировал",
			Recurrence:     models.RecurrenceNone,
			State:          models.StateFired,
			TriggeredCount: 2,
			CreatedAt:      now.Add(-time.Minute),
			UpdatedAt:      now.Add(-time.Minute),
		},
		{
			ID:              "done-1",
			OwnerID:         "U1",
			OriginChannelID: "C1",
			Kind:            models.KindKeyword,
			Trigger:         models.Trigger{Keyword: &models.KeywordTrigger{Pattern: "deploy"}},
			Message:         "old",
			Recurrence:      models.RecurrenceNone,
			State:           models.StateCompleted,
			CreatedAt:       now.Add(-72 * time.Hour),
			UpdatedAt:       now.Add(-48 * time.Hour),
		},
	}
}

func exerciseRepository(ctx context.Context, t *testing.T, repo repository.ReminderRepository) {
	t.Helper()

	now := time.Now().Truncate(time.Millisecond)
	reminders := sampleReminders(now)

	for i := range reminders {
		require.NoError(t, repo.Persist(ctx, &reminders[i]))
	}

	t.Run("LoadAllActive skips finished reminders", func(t *testing.T) {
		loaded, err := repo.LoadAllActive(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)

		assert.Equal(t, "timer-1", loaded[0].ID)
		assert.Equal(t, "reaction-1", loaded[1].ID)

		timer := loaded[0]
		require.NotNil(t, timer.Trigger.Timer)
		assert.True(t, reminders[0].Trigger.Timer.FireAt.Equal(timer.Trigger.Timer.FireAt))
		assert.Equal(t, "Europe/Paris", timer.Trigger.Timer.Timezone)
		assert.Equal(t, models.RecurrenceDaily, timer.Recurrence)

		reaction := loaded[1]
		require.NotNil(t, reaction.Trigger.Reaction)
		assert.Equal(t, models.Emoji{Name: "party", ID: "123"}, reaction.Trigger.Reaction.Emoji)
		assert.Equal(t, models.StateFired, reaction.State)
		assert.Equal(t, 2, reaction.TriggeredCount)
		assert.Equal(t, "G1", reaction.GroupID)
	})

	t.Run("Persist updates existing reminder", func(t *testing.T) {
		updated := reminders[1]
		updated.State = models.StateActive
		updated.TriggeredCount = 3
		updated.UpdatedAt = now

		require.NoError(t, repo.Persist(ctx, &updated))

		loaded, err := repo.LoadAllActive(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, 3, loaded[1].TriggeredCount)
		assert.Equal(t, models.StateActive, loaded[1].State)
	})

	t.Run("PurgeInactive removes only old finished reminders", func(t *testing.T) {
		purged, err := repo.PurgeInactive(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		purged, err = repo.PurgeInactive(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, purged)
	})

	t.Run("Remove and RemoveMany", func(t *testing.T) {
		require.NoError(t, repo.Remove(ctx, "timer-1"))
		require.NoError(t, repo.Remove(ctx, "missing"))

		loaded, err := repo.LoadAllActive(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 1)

		batch := make([]string, 0, 1200)

		for i := 0; i < 1200; i++ {
			reminder := reminders[1]
			reminder.ID = fmt.Sprintf("bulk-%04d", i)
			require.NoError(t, repo.Persist(ctx, &reminder))

			batch = append(batch, reminder.ID)
		}

		require.NoError(t, repo.RemoveMany(ctx, append(batch, "reaction-1")))

		loaded, err = repo.LoadAllActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

func TestReminderRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := setupPostgres(ctx, t, logger)

	for _, accessType := range []config.AccessType{config.SQLAccess, config.SquirrelAccess} {
		t.Run(string(accessType), func(t *testing.T) {
			_, err := db.Pool.Exec(ctx, "DELETE FROM reminders")
			require.NoError(t, err)

			factory := repository.NewFactory(db, nil, &config.Config{
				StorageType:        config.PostgresStorage,
				DatabaseAccessType: accessType,
			}, logger)

			repo, err := factory.CreateReminderRepository()
			require.NoError(t, err)

			exerciseRepository(ctx, t, repo)
		})
	}
}

func TestReminderRepository_Redis(t *testing.T) {
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	factory := repository.NewFactory(nil, client, &config.Config{StorageType: config.RedisStorage}, logger)

	repo, err := factory.CreateReminderRepository()
	require.NoError(t, err)

	exerciseRepository(ctx, t, repo)
}

func TestReminderRepository_RemoveManyJoinsOuterTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	// Arrange
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := setupPostgres(ctx, t, logger)
	txManager := txs.NewTxManager(db.Pool, logger)
	repo := sqlrepo.NewReminderRepository(db, txManager)

	reminders := sampleReminders(time.Now().Truncate(time.Millisecond))
	for i := range reminders {
		require.NoError(t, repo.Persist(ctx, &reminders[i]))
	}

	// Act
	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		require.True(t, txs.InTransaction(ctx))

		if err := repo.RemoveMany(ctx, []string{"timer-1", "reaction-1"}); err != nil {
			return err
		}

		return errors.New("откат")
	})

	// Assert
	require.Error(t, err)

	loaded, err := repo.LoadAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
