package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmhodges/clock"
	"go.uber.org/multierr"

	"github.com/central-university-dev/go-reminders/internal/bot/clients"
	"github.com/central-university-dev/go-reminders/internal/bot/clients/kafka"
	"github.com/central-university-dev/go-reminders/internal/bot/notify"
	botservice "github.com/central-university-dev/go-reminders/internal/bot/service"
	"github.com/central-university-dev/go-reminders/internal/bot/telegram"
	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/common/ratelimit"
	"github.com/central-university-dev/go-reminders/internal/config"
	"github.com/central-university-dev/go-reminders/internal/database"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
	"github.com/central-university-dev/go-reminders/internal/reminder/matcher"
	"github.com/central-university-dev/go-reminders/internal/reminder/repository"
	"github.com/central-university-dev/go-reminders/internal/reminder/scheduler"
	"github.com/central-university-dev/go-reminders/internal/reminder/service"
	"github.com/central-university-dev/go-reminders/internal/reminder/store"
	"github.com/central-university-dev/go-reminders/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

type components struct {
	db             *database.PostgresDB
	redis          *redis.Client
	snapshot       *store.FileSnapshot
	store          *store.Store
	scheduler      *scheduler.Scheduler
	senderFactory  *notify.SenderFactory
	poller         *telegram.Poller
	kafkaConsumer  *kafka.Consumer
	healthChecks   map[string]metrics.HealthCheck
	telegramClient *clients.TelegramClient
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	cfg := config.LoadConfig()

	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	c := &components{healthChecks: map[string]metrics.HealthCheck{}}

	defer func() {
		if err := c.close(appLogger); err != nil {
			appLogger.Error("Ошибка при освобождении ресурсов", "error", err)
		}
	}()

	if err := c.connectStorage(ctx, cfg, appLogger); err != nil {
		return err
	}

	repo, err := repository.NewFactory(c.db, c.redis, cfg, appLogger).CreateReminderRepository()
	if err != nil {
		return fmt.Errorf("ошибка создания репозитория напоминаний: %w", err)
	}

	var loader service.Loader

	var persister store.Persister

	switch {
	case repo != nil:
		loader = repo
		persister = repo
	case cfg.SnapshotPath != "":
		c.snapshot = &store.FileSnapshot{Path: cfg.SnapshotPath}
		loader = c.snapshot
	}

	c.store = store.New(persister, clk, appLogger)
	c.healthChecks["store"] = func(context.Context) error { return c.store.Verify() }

	var telegramSender delivery.Sender

	if cfg.TelegramBotToken != "" {
		c.telegramClient, err = clients.NewTelegramClient(cfg.TelegramBotToken, appLogger)
		if err != nil {
			return fmt.Errorf("ошибка создания Telegram клиента: %w", err)
		}

		telegramSender = c.telegramClient
	}

	c.senderFactory = notify.NewSenderFactory(cfg, telegramSender, appLogger)

	sender, err := c.senderFactory.CreateSender()
	if err != nil {
		return fmt.Errorf("ошибка создания транспорта доставки: %w", err)
	}

	var deliveryLog delivery.DeliveryLog = delivery.NewMemoryDeliveryLog(cfg.DeliveryLogTTL, clk)
	if c.redis != nil {
		deliveryLog = delivery.NewRedisDeliveryLog(c.redis, cfg.DeliveryLogTTL, appLogger)
	}

	dispatcher := delivery.NewDispatcher(sender, deliveryLog, clk, cfg.SnoozeOffset, appLogger)

	c.scheduler = scheduler.New(c.store, dispatcher, clk, cfg.SchedulerSettings(), appLogger)
	c.store.SetCanceler(c.scheduler)

	reminderMatcher := matcher.New(c.store, dispatcher, appLogger)

	limiter := ratelimit.NewKeyedLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, clk, appLogger)
	go limiter.Run(ctx, cfg.RateLimitWindow)

	reminderService := service.NewReminderService(
		c.store,
		c.scheduler,
		reminderMatcher,
		dispatcher,
		limiter,
		clk,
		cfg.SnoozeOffset,
		appLogger,
	)

	if repo != nil {
		purged, err := repo.PurgeInactive(ctx, clk.Now().Add(-cfg.RetentionWindow))
		if err != nil {
			appLogger.Warn("Не удалось удалить устаревшие напоминания", "error", err)
		} else if purged > 0 {
			appLogger.Info("Удалены устаревшие напоминания", "count", purged)
		}
	}

	if loader != nil {
		if err := reminderService.Restore(ctx, loader); err != nil {
			return err
		}
	}

	if c.snapshot != nil {
		err := c.scheduler.AddPeriodicJob("snapshot", cfg.SnapshotInterval, func(context.Context) {
			if err := c.snapshot.Save(c.store); err != nil {
				appLogger.Error("Ошибка при сохранении снимка напоминаний", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	if err := c.scheduler.Start(); err != nil {
		return fmt.Errorf("ошибка запуска планировщика: %w", err)
	}

	commands := botservice.NewBotService(reminderService, clk, cfg.DefaultTimezone, appLogger)

	if err := c.startTransports(ctx, cfg, commands, reminderService, appLogger); err != nil {
		return err
	}

	metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, appLogger, c.healthChecks)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Ошибка сервера метрик", "error", err)
		}
	}()

	appLogger.Info("Сервис напоминаний запущен",
		"storage", cfg.StorageType,
		"message_transport", cfg.MessageTransport,
		"event_transport", cfg.EventTransport,
	)

	<-ctx.Done()
	appLogger.Info("Получен сигнал завершения")

	return nil
}

func (c *components) connectStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.StorageType == config.PostgresStorage {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return fmt.Errorf("ошибка применения миграций: %w", err)
		}

		db, err := database.NewPostgresDB(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("ошибка подключения к базе данных: %w", err)
		}

		c.db = db
		c.healthChecks["postgres"] = db.Ping
	}

	if cfg.StorageType != config.RedisStorage && cfg.RedisURL == "" {
		return nil
	}

	client, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		if cfg.StorageType == config.RedisStorage {
			return err
		}

		logger.Warn("Redis недоступен, журнал доставок хранится в памяти", "error", err)

		return nil
	}

	c.redis = client
	c.healthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	return nil
}

func (c *components) startTransports(
	ctx context.Context,
	cfg *config.Config,
	commands telegram.CommandProcessor,
	reminderService *service.ReminderService,
	logger *slog.Logger,
) error {
	var messages telegram.MessageHandler

	switch strings.ToUpper(cfg.EventTransport) {
	case config.TransportTelegram:
		messages = reminderService
	case config.TransportKafka:
		c.kafkaConsumer = kafka.NewConsumer(
			strings.Split(cfg.KafkaBrokers, ","),
			"reminder-group",
			cfg.TopicPlatformEvents,
			cfg.TopicDeadLetterQueue,
			reminderService,
			logger,
		)
		c.kafkaConsumer.Start(ctx)
		logger.Info("Kafka консьюмер событий платформы запущен")
	default:
		return &domainerrors.ErrUnknownTransport{Transport: cfg.EventTransport}
	}

	if c.telegramClient == nil {
		logger.Warn("TELEGRAM_BOT_TOKEN не задан, команды через Telegram недоступны")
		return nil
	}

	if err := c.telegramClient.SetMyCommands(ctx, telegram.BotCommands()); err != nil {
		logger.Error("Ошибка при регистрации команд бота", "error", err)
	} else {
		logger.Info("Команды бота успешно зарегистрированы")
	}

	c.poller = telegram.NewPoller(c.telegramClient, commands, messages, logger)

	return c.poller.Start()
}

// close останавливает источники событий раньше хранилищ, чтобы последние изменения попали в снимок.
func (c *components) close(logger *slog.Logger) error {
	var err error

	if c.poller != nil {
		err = multierr.Append(err, c.poller.Close())
	}

	if c.kafkaConsumer != nil {
		err = multierr.Append(err, c.kafkaConsumer.Close())
	}

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.senderFactory != nil {
		err = multierr.Append(err, c.senderFactory.Close())
	}

	if c.snapshot != nil && c.store != nil {
		if saveErr := c.snapshot.Save(c.store); saveErr != nil {
			err = multierr.Append(err, saveErr)
		} else {
			logger.Info("Снимок напоминаний сохранён", "path", c.snapshot.Path)
		}
	}

	if c.redis != nil {
		err = multierr.Append(err, c.redis.Close())
	}

	if c.db != nil {
		err = multierr.Append(err, c.db.Close())
	}

	logger.Info("Сервис успешно остановлен")

	return err
}
