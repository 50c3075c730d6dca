package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-reminders/internal/common/httputil"
	"github.com/central-university-dev/go-reminders/internal/config"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type gatewayMessage struct {
	Text         string              `json:"text"`
	Notification models.Notification `json:"notification"`
}

// HTTPSender отправляет уведомления через HTTP шлюз платформы.
type HTTPSender struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewHTTPSender(baseURL string, cfg *config.Config, logger *slog.Logger) *HTTPSender {
	if baseURL == "" {
		baseURL = "http://notification_gateway:8080"
	}

	return &HTTPSender{
		client:  httputil.CreateResilientHTTPClient(cfg, logger, "notification_gateway"),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (s *HTTPSender) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	return s.post(ctx, "/channels/"+url.PathEscape(channelID)+"/messages", notification)
}

func (s *HTTPSender) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	return s.post(ctx, "/users/"+url.PathEscape(userID)+"/messages", notification)
}

func (s *HTTPSender) post(ctx context.Context, path string, notification *models.Notification) error {
	s.logger.Info("Отправка уведомления в шлюз",
		"reminderID", notification.ReminderID,
		"path", path,
	)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(gatewayMessage{Text: notification.Text(), Notification: *notification}).
		Post(s.baseURL + path)
	if err != nil {
		return fmt.Errorf("ошибка при отправке уведомления в шлюз: %w", err)
	}

	if resp.IsError() {
		s.logger.Error("Шлюз отклонил уведомление",
			"status", resp.StatusCode(),
			"reminderID", notification.ReminderID,
		)

		return &domainerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	return nil
}
