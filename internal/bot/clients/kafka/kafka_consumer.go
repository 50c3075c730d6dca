package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const (
	EventMessagePosted = "message_posted"
	EventReactionAdded = "reaction_added"
)

// PlatformEvent конверт события платформы: type определяет, какое из полей заполнено.
type PlatformEvent struct {
	Type     string                `json:"type"`
	Message  *models.MessageEvent  `json:"message,omitempty"`
	Reaction *models.ReactionEvent `json:"reaction,omitempty"`
}

type EventHandler interface {
	OnMessage(ctx context.Context, event models.MessageEvent) int
	OnReactionAdded(ctx context.Context, event models.ReactionEvent) int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Option func(*Consumer)

// WithDeadLetterWriter заменяет writer очереди недоставленных сообщений.
func WithDeadLetterWriter(writer messageWriter) Option {
	return func(c *Consumer) {
		c.dlqWriter = writer
	}
}

type Consumer struct {
	reader       *kafka.Reader
	dlqWriter    messageWriter
	eventHandler EventHandler
	logger       *slog.Logger
	eventsTopic  string
	dlqTopic     string
}

func NewConsumer(
	brokers []string,
	groupID string,
	eventsTopic string,
	dlqTopic string,
	eventHandler EventHandler,
	logger *slog.Logger,
	opts ...Option,
) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          eventsTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 1 * time.Second,
		Logger:         kafka.LoggerFunc(logger.Debug),
		ErrorLogger:    kafka.LoggerFunc(logger.Error),
	})

	c := &Consumer{
		reader: reader,
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			Logger:       kafka.LoggerFunc(logger.Debug),
			ErrorLogger:  kafka.LoggerFunc(logger.Error),
		},
		eventHandler: eventHandler,
		logger:       logger,
		eventsTopic:  eventsTopic,
		dlqTopic:     dlqTopic,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("Запуск потребления событий платформы из Kafka",
		"topic", c.eventsTopic,
	)

	go func() {
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					c.logger.Info("Остановка потребления событий из Kafka")
					return
				}

				c.logger.Error("Ошибка при чтении сообщения из Kafka",
					"error", err,
				)

				continue
			}

			c.logger.Debug("Получено событие из Kafka",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)

			if err := c.HandleMessage(ctx, &msg); err != nil {
				c.logger.Error("Ошибка при обработке события",
					"error", err,
					"offset", msg.Offset,
				)
			}
		}
	}()
}

// HandleMessage разбирает событие и передаёт его обработчику. Сообщения,
// которые не удалось разобрать, отправляются в DLQ.
func (c *Consumer) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	event, err := DecodeEvent(msg.Value)
	if err != nil {
		if sendErr := c.sendToDLQ(ctx, msg.Value, err.Error()); sendErr != nil {
			c.logger.Error("Ошибка при отправке сообщения в DLQ",
				"error", sendErr,
			)
		}

		return err
	}

	var fired int

	switch event.Type {
	case EventMessagePosted:
		fired = c.eventHandler.OnMessage(ctx, *event.Message)
	case EventReactionAdded:
		fired = c.eventHandler.OnReactionAdded(ctx, *event.Reaction)
	}

	c.logger.Debug("Событие обработано",
		"type", event.Type,
		"fired", fired,
	)

	return nil
}

// DecodeEvent проверяет конверт события и наличие данных для его типа.
func DecodeEvent(data []byte) (PlatformEvent, error) {
	var event PlatformEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return PlatformEvent{}, fmt.Errorf("ошибка десериализации события: %w", err)
	}

	switch event.Type {
	case "":
		return PlatformEvent{}, &domainerrors.ErrMissingEventType{}
	case EventMessagePosted:
		if event.Message == nil {
			return PlatformEvent{}, &domainerrors.ErrMissingRequiredField{FieldName: "message"}
		}
	case EventReactionAdded:
		if event.Reaction == nil {
			return PlatformEvent{}, &domainerrors.ErrMissingRequiredField{FieldName: "reaction"}
		}
	default:
		return PlatformEvent{}, &domainerrors.ErrUnsupportedEventType{Type: event.Type}
	}

	return event, nil
}

func (c *Consumer) sendToDLQ(ctx context.Context, message []byte, errMsg string) error {
	c.logger.Info("Отправка сообщения в DLQ",
		"error", errMsg,
		"topic", c.dlqTopic,
	)

	err := c.dlqWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: message,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(errMsg)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
		Time: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("ошибка при отправке сообщения в DLQ: %w", err)
	}

	return nil
}

func (c *Consumer) Close() error {
	return multierr.Append(c.reader.Close(), c.dlqWriter.Close())
}
