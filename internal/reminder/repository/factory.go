package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/central-university-dev/go-reminders/internal/config"
	"github.com/central-university-dev/go-reminders/internal/database"
	"github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/repository/orm"
	redisrepo "github.com/central-university-dev/go-reminders/internal/reminder/repository/redis"
	sqlrepo "github.com/central-university-dev/go-reminders/internal/reminder/repository/sql"
	"github.com/central-university-dev/go-reminders/pkg/txs"
)

// ReminderRepository сохраняет изменения хранилища напоминаний и загружает их при старте.
type ReminderRepository interface {
	Persist(ctx context.Context, reminder *models.Reminder) error
	Remove(ctx context.Context, id string) error
	RemoveMany(ctx context.Context, ids []string) error
	LoadAllActive(ctx context.Context) ([]models.Reminder, error)
	PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

type Factory struct {
	db     *database.PostgresDB
	redis  *redis.Client
	config *config.Config
	logger *slog.Logger
}

// NewFactory принимает подключения, нужные выбранному типу хранилища; остальные могут быть nil.
func NewFactory(db *database.PostgresDB, redisClient *redis.Client, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:     db,
		redis:  redisClient,
		config: config,
		logger: logger,
	}
}

// CreateReminderRepository возвращает nil для хранилища в памяти.
func (f *Factory) CreateReminderRepository() (ReminderRepository, error) {
	switch f.config.StorageType {
	case config.MemoryStorage:
		f.logger.Info("Напоминания хранятся только в памяти")
		return nil, nil
	case config.RedisStorage:
		f.logger.Info("Создание Redis репозитория напоминаний")
		return NewInstrumentedRepository(redisrepo.NewReminderRepository(f.redis, f.logger), "redis"), nil
	case config.PostgresStorage:
		return f.createPostgresRepository()
	default:
		return nil, &errors.ErrUnknownStorageType{StorageType: string(f.config.StorageType)}
	}
}

func (f *Factory) createPostgresRepository() (ReminderRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория напоминаний")
		return NewInstrumentedRepository(orm.NewReminderRepository(f.db, txs.NewTxManager(f.db.Pool, f.logger)), "squirrel"), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория напоминаний")
		return NewInstrumentedRepository(sqlrepo.NewReminderRepository(f.db, txs.NewTxManager(f.db.Pool, f.logger)), "sql"), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}
