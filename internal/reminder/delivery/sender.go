package delivery

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// Sender отправляет готовое уведомление через платформу.
type Sender interface {
	SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error
	SendDirect(ctx context.Context, userID string, notification *models.Notification) error
}

// FallbackSender отправляет через основной транспорт, а при ошибке через резервный.
type FallbackSender struct {
	primary   Sender
	secondary Sender
	logger    *slog.Logger
}

func NewFallbackSender(primary, secondary Sender, logger *slog.Logger) *FallbackSender {
	return &FallbackSender{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (s *FallbackSender) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	return s.send(notification, func(sender Sender) error {
		return sender.SendToChannel(ctx, channelID, notification)
	})
}

func (s *FallbackSender) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	return s.send(notification, func(sender Sender) error {
		return sender.SendDirect(ctx, userID, notification)
	})
}

func (s *FallbackSender) send(notification *models.Notification, call func(Sender) error) error {
	err := call(s.primary)
	if err == nil {
		return nil
	}

	s.logger.Warn("Основной транспорт недоступен, переключаемся на резервный",
		"primaryError", err,
		"reminderID", notification.ReminderID,
	)

	if fallbackErr := call(s.secondary); fallbackErr != nil {
		return err
	}

	s.logger.Info("Уведомление успешно отправлено через резервный транспорт",
		"reminderID", notification.ReminderID,
	)

	return nil
}
