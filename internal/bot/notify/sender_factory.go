package notify

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/multierr"

	"github.com/central-university-dev/go-reminders/internal/config"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
)

type SenderFactory struct {
	config   *config.Config
	telegram delivery.Sender
	logger   *slog.Logger
	closers  []io.Closer
}

// NewSenderFactory принимает готовый Telegram клиент, если он создан. Для
// транспортов HTTP и KAFKA клиенты создаются фабрикой.
func NewSenderFactory(cfg *config.Config, telegram delivery.Sender, logger *slog.Logger) *SenderFactory {
	return &SenderFactory{
		config:   cfg,
		telegram: telegram,
		logger:   logger,
	}
}

// CreateSender возвращает основной транспорт, при включённом резерве обёрнутый в FallbackSender.
func (f *SenderFactory) CreateSender() (delivery.Sender, error) {
	primary, err := f.create(f.config.MessageTransport)
	if err != nil {
		return nil, err
	}

	if !f.config.FallbackEnabled {
		return primary, nil
	}

	if strings.EqualFold(f.config.FallbackTransport, f.config.MessageTransport) {
		f.logger.Warn("Резервный транспорт совпадает с основным, резерв отключён",
			"transport", f.config.MessageTransport,
		)

		return primary, nil
	}

	secondary, err := f.create(f.config.FallbackTransport)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании резервного транспорта: %w", err)
	}

	f.logger.Info("Включён резервный транспорт уведомлений",
		"primary", f.config.MessageTransport,
		"secondary", f.config.FallbackTransport,
	)

	return delivery.NewFallbackSender(primary, secondary, f.logger), nil
}

func (f *SenderFactory) create(transport string) (delivery.Sender, error) {
	transport = strings.ToUpper(transport)

	f.logger.Info("Создание транспорта уведомлений",
		"type", transport,
	)

	switch transport {
	case config.TransportTelegram:
		if f.telegram == nil {
			return nil, fmt.Errorf("транспорт %s требует TELEGRAM_BOT_TOKEN", transport)
		}

		return f.telegram, nil
	case config.TransportHTTP:
		return NewHTTPSender(f.config.GatewayBaseURL, f.config, f.logger), nil
	case config.TransportKafka:
		brokers := strings.Split(f.config.KafkaBrokers, ",")
		sender := NewKafkaSender(brokers, f.config.TopicNotifications, f.logger)
		f.closers = append(f.closers, sender)

		return sender, nil
	default:
		return nil, fmt.Errorf("неизвестный тип транспорта уведомлений: %s", transport)
	}
}

// Close закрывает созданных фабрикой отправителей Kafka.
func (f *SenderFactory) Close() error {
	var err error

	for _, closer := range f.closers {
		err = multierr.Append(err, closer.Close())
	}

	return err
}
