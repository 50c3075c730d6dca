package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmhodges/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const tracerName = "github.com/central-university-dev/go-reminders/internal/reminder/delivery"

type Dispatcher struct {
	sender       Sender
	log          DeliveryLog
	clock        clock.Clock
	snoozeOffset time.Duration
	tracer       trace.Tracer
	logger       *slog.Logger
}

func NewDispatcher(
	sender Sender,
	log DeliveryLog,
	clk clock.Clock,
	snoozeOffset time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		sender:       sender,
		log:          log,
		clock:        clk,
		snoozeOffset: snoozeOffset,
		tracer:       otel.Tracer(tracerName),
		logger:       logger,
	}
}

// Deliver отправляет уведомление в исходный канал напоминания, а при ошибке
// владельцу в личные сообщения. Результат Failed несёт ErrDelivery.
func (d *Dispatcher) Deliver(ctx context.Context, reminder models.Reminder, fireCtx models.FireContext) models.DeliveryResult {
	ctx, span := d.tracer.Start(ctx, "delivery.Deliver", trace.WithAttributes(
		attribute.String("reminder.id", reminder.ID),
		attribute.String("reminder.kind", string(reminder.Kind)),
		attribute.String("fire.reason", string(fireCtx.Reason)),
	))
	defer span.End()

	start := d.clock.Now()

	if fireCtx.At.IsZero() {
		fireCtx.At = start
	}

	notification := Render(reminder, fireCtx, d.snoozeOffset)
	result := d.send(ctx, reminder, &notification)

	metrics.RecordDelivery(string(result.Status), d.clock.Now().Sub(start))
	span.SetAttributes(attribute.String("delivery.status", string(result.Status)))

	if !result.Delivered() {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())

		return result
	}

	if reminder.Kind == models.KindTimer && d.log != nil {
		if err := d.log.Record(ctx, reminder); err != nil {
			d.logger.Warn("Не удалось записать доставку в журнал",
				"error", err,
				"id", reminder.ID,
			)
		}
	}

	return result
}

func (d *Dispatcher) send(ctx context.Context, reminder models.Reminder, notification *models.Notification) models.DeliveryResult {
	var primaryErr error

	if reminder.OriginChannelID != "" {
		primaryErr = d.sender.SendToChannel(ctx, reminder.OriginChannelID, notification)
		if primaryErr == nil {
			d.logger.Info("Напоминание доставлено в канал",
				"id", reminder.ID,
				"channel", reminder.OriginChannelID,
			)

			return models.DeliveryResult{Status: models.DeliveredPrimary}
		}

		d.logger.Warn("Не удалось отправить напоминание в канал, отправляем владельцу лично",
			"error", primaryErr,
			"id", reminder.ID,
			"channel", reminder.OriginChannelID,
		)
	}

	directErr := d.sender.SendDirect(ctx, reminder.OwnerID, notification)
	if directErr == nil {
		d.logger.Info("Напоминание доставлено владельцу лично",
			"id", reminder.ID,
			"owner", reminder.OwnerID,
		)

		return models.DeliveryResult{Status: models.DeliveredFallback}
	}

	err := &domainerrors.ErrDelivery{
		Channel: reminder.OriginChannelID,
		Target:  reminder.OwnerID,
		Cause:   multierr.Combine(primaryErr, directErr),
	}

	d.logger.Error("Не удалось доставить напоминание",
		"error", err,
		"id", reminder.ID,
	)

	return models.DeliveryResult{Status: models.DeliveryFailed, Err: err}
}

// Recent возвращает недавно доставленное напоминание по времени из журнала.
func (d *Dispatcher) Recent(ctx context.Context, id string) (models.Reminder, bool) {
	if d.log == nil {
		return models.Reminder{}, false
	}

	reminder, ok, err := d.log.Lookup(ctx, id)
	if err != nil {
		d.logger.Warn("Ошибка при чтении журнала доставок",
			"error", err,
			"id", id,
		)

		return models.Reminder{}, false
	}

	return reminder, ok
}

// Forget удаляет напоминание из журнала доставок.
func (d *Dispatcher) Forget(ctx context.Context, id string) {
	if d.log == nil {
		return
	}

	if err := d.log.Forget(ctx, id); err != nil {
		d.logger.Warn("Ошибка при удалении записи из журнала доставок",
			"error", err,
			"id", id,
		)
	}
}
