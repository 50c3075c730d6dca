package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const (
	TargetChannel = "channel"
	TargetDirect  = "direct"
)

// NotificationMessage сообщение, которое шлюз платформы читает из топика уведомлений.
type NotificationMessage struct {
	Target       string              `json:"target"`
	TargetID     string              `json:"targetId"`
	Notification models.Notification `json:"notification"`
	Text         string              `json:"text"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSender struct {
	producer messageWriter
	logger   *slog.Logger
	topic    string
}

func NewKafkaSender(brokers []string, topic string, logger *slog.Logger) *KafkaSender {
	producer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return NewKafkaSenderWithWriter(producer, topic, logger)
}

func NewKafkaSenderWithWriter(producer messageWriter, topic string, logger *slog.Logger) *KafkaSender {
	return &KafkaSender{
		producer: producer,
		logger:   logger,
		topic:    topic,
	}
}

func (s *KafkaSender) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	return s.publish(ctx, TargetChannel, channelID, notification)
}

func (s *KafkaSender) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	return s.publish(ctx, TargetDirect, userID, notification)
}

func (s *KafkaSender) publish(ctx context.Context, target, targetID string, notification *models.Notification) error {
	s.logger.Info("Отправка уведомления в Kafka",
		"reminderID", notification.ReminderID,
		"target", target,
		"targetID", targetID,
		"topic", s.topic,
	)

	value, err := json.Marshal(NotificationMessage{
		Target:       target,
		TargetID:     targetID,
		Notification: *notification,
		Text:         notification.Text(),
	})
	if err != nil {
		return fmt.Errorf("ошибка при сериализации уведомления: %w", err)
	}

	err = s.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notification.ReminderID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		s.logger.Error("Ошибка при отправке уведомления в Kafka",
			"error", err,
			"reminderID", notification.ReminderID,
		)

		return fmt.Errorf("ошибка при отправке уведомления в Kafka: %w", err)
	}

	return nil
}

func (s *KafkaSender) Close() error {
	return s.producer.Close()
}
