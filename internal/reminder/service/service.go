package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmhodges/clock"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/scheduler"
	"github.com/central-university-dev/go-reminders/internal/reminder/trigger"
)

type ReminderStore interface {
	Create(ctx context.Context, spec models.Spec) models.Reminder
	Get(id string) (models.Reminder, bool)
	ByOwner(ownerID string) []models.Reminder
	Delete(ctx context.Context, id string) bool
	Complete(ctx context.Context, id string) bool
	Load(reminders []models.Reminder)
	Stats() models.Stats
}

type Scheduler interface {
	Arm(reminder models.Reminder)
	Snooze(ctx context.Context, id string, offset time.Duration) (models.Reminder, bool)
	Reconcile(ctx context.Context) int
}

type Matcher interface {
	OnMessage(ctx context.Context, event models.MessageEvent) int
	OnReactionAdded(ctx context.Context, event models.ReactionEvent) int
}

// RecentDeliveries даёт доступ к недавно доставленным напоминаниям по времени.
type RecentDeliveries interface {
	Recent(ctx context.Context, id string) (models.Reminder, bool)
	Forget(ctx context.Context, id string)
}

type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type Loader interface {
	LoadAllActive(ctx context.Context) ([]models.Reminder, error)
}

type CreateRequest struct {
	OwnerID         string
	GroupID         string
	OriginChannelID string
	Kind            models.Kind
	Trigger         models.Trigger
	Message         string
	Recurrence      models.Recurrence
}

// ReminderService связывает командный слой с хранилищем, планировщиком и сопоставлением событий.
type ReminderService struct {
	store        ReminderStore
	scheduler    Scheduler
	matcher      Matcher
	deliveries   RecentDeliveries
	limiter      Limiter
	clock        clock.Clock
	snoozeOffset time.Duration
	logger       *slog.Logger
}

func NewReminderService(
	store ReminderStore,
	sched Scheduler,
	matcher Matcher,
	deliveries RecentDeliveries,
	limiter Limiter,
	clk clock.Clock,
	snoozeOffset time.Duration,
	logger *slog.Logger,
) *ReminderService {
	return &ReminderService{
		store:        store,
		scheduler:    sched,
		matcher:      matcher,
		deliveries:   deliveries,
		limiter:      limiter,
		clock:        clk,
		snoozeOffset: snoozeOffset,
		logger:       logger,
	}
}

func (s *ReminderService) CreateReminder(ctx context.Context, req CreateRequest) (models.Reminder, error) {
	if err := s.validate(req); err != nil {
		return models.Reminder{}, err
	}

	if s.limiter != nil {
		if allowed, retryAfter := s.limiter.Allow(req.OwnerID); !allowed {
			return models.Reminder{}, &domainerrors.ErrRateLimited{UserID: req.OwnerID, RetryAfter: retryAfter}
		}
	}

	reminder := s.store.Create(ctx, models.Spec{
		OwnerID:         req.OwnerID,
		GroupID:         req.GroupID,
		OriginChannelID: req.OriginChannelID,
		Kind:            req.Kind,
		Trigger:         req.Trigger,
		Message:         strings.TrimSpace(req.Message),
		Recurrence:      req.Recurrence,
	})

	if reminder.Kind == models.KindTimer {
		s.scheduler.Arm(reminder)
	}

	metrics.RecordReminderCreated(string(reminder.Kind))

	return reminder, nil
}

// CreateFromText разбирает текст триггера, определяя тип автоматически.
func (s *ReminderService) CreateFromText(
	ctx context.Context,
	ownerID, groupID, channelID, triggerText, message, timezone string,
) (models.Reminder, error) {
	kind := trigger.DetectKind(triggerText)

	parsed, err := trigger.Parse(kind, triggerText, s.clock.Now(), timezone)
	if err != nil {
		return models.Reminder{}, err
	}

	return s.CreateReminder(ctx, CreateRequest{
		OwnerID:         ownerID,
		GroupID:         groupID,
		OriginChannelID: channelID,
		Kind:            kind,
		Trigger:         parsed,
		Message:         message,
		Recurrence:      models.RecurrenceNone,
	})
}

// CreateAt создаёт напоминание на локальные дату и время в часовом поясе timezone.
func (s *ReminderService) CreateAt(
	ctx context.Context,
	ownerID, groupID, channelID string,
	local models.LocalDateTime,
	timezone string,
	recurrence models.Recurrence,
	message string,
) (models.Reminder, error) {
	fireAt, err := scheduler.ResolveInstant(local, timezone)
	if err != nil {
		return models.Reminder{}, err
	}

	if !fireAt.After(s.clock.Now()) {
		return models.Reminder{}, &domainerrors.ErrInvalidDateTime{
			Value:  fmt.Sprintf("%02d/%02d/%04d %02d:%02d", local.Day, local.Month, local.Year, local.Hour, local.Minute),
			Reason: "этот момент уже прошёл",
		}
	}

	return s.CreateReminder(ctx, CreateRequest{
		OwnerID:         ownerID,
		GroupID:         groupID,
		OriginChannelID: channelID,
		Kind:            models.KindTimer,
		Trigger:         models.Trigger{Timer: &models.TimerTrigger{FireAt: fireAt, Timezone: timezone}},
		Message:         message,
		Recurrence:      recurrence,
	})
}

// DeleteReminder удаляет напоминание владельца. Чужое напоминание даёт ErrNotOwner,
// неизвестное ErrReminderNotFound.
func (s *ReminderService) DeleteReminder(ctx context.Context, ownerID, id string) (bool, error) {
	if _, err := s.owned(ownerID, id); err != nil {
		return false, err
	}

	if !s.store.Delete(ctx, id) {
		return false, &domainerrors.ErrReminderNotFound{ID: id}
	}

	if s.deliveries != nil {
		s.deliveries.Forget(ctx, id)
	}

	s.logger.Info("Напоминание удалено владельцем",
		"id", id,
		"owner", ownerID,
	)

	return true, nil
}

func (s *ReminderService) ListReminders(ownerID string) []models.Reminder {
	return s.store.ByOwner(ownerID)
}

func (s *ReminderService) GetStats() models.Stats {
	return s.store.Stats()
}

func (s *ReminderService) OnMessage(ctx context.Context, event models.MessageEvent) int {
	return s.matcher.OnMessage(ctx, event)
}

func (s *ReminderService) OnReactionAdded(ctx context.Context, event models.ReactionEvent) int {
	return s.matcher.OnReactionAdded(ctx, event)
}

// Complete отмечает напоминание выполненным. Для уже удалённого одноразового
// напоминания достаточно записи в журнале доставок.
func (s *ReminderService) Complete(ctx context.Context, ownerID, id string) error {
	_, err := s.owned(ownerID, id)

	switch {
	case err == nil:
		s.store.Complete(ctx, id)
	case errors.Is(err, &domainerrors.ErrReminderNotFound{}):
		recent, ok := s.recent(ctx, id)
		if !ok {
			return err
		}

		if recent.OwnerID != ownerID {
			return &domainerrors.ErrNotOwner{ID: id, UserID: ownerID}
		}
	default:
		return err
	}

	if s.deliveries != nil {
		s.deliveries.Forget(ctx, id)
	}

	s.logger.Info("Напоминание отмечено выполненным",
		"id", id,
		"owner", ownerID,
	)

	return nil
}

// Snooze откладывает напоминание на snoozeOffset. Одноразовое напоминание,
// удалённое после срабатывания, создаётся заново из журнала доставок, а для
// повторяющегося, уже взведённого на следующий раз, создаётся разовая копия.
func (s *ReminderService) Snooze(ctx context.Context, ownerID, id string) (models.Reminder, error) {
	reminder, err := s.owned(ownerID, id)

	switch {
	case err == nil:
		if reminder.Kind != models.KindTimer {
			return models.Reminder{}, &domainerrors.ErrInvalidTrigger{
				Kind:   string(reminder.Kind),
				Reason: "отложить можно только напоминание по времени",
			}
		}

		if s.alreadyRearmed(reminder) {
			return s.followUp(ctx, reminder)
		}

		snoozed, ok := s.scheduler.Snooze(ctx, id, s.snoozeOffset)
		if !ok {
			return models.Reminder{}, &domainerrors.ErrReminderNotFound{ID: id}
		}

		return snoozed, nil
	case errors.Is(err, &domainerrors.ErrReminderNotFound{}):
		recent, ok := s.recent(ctx, id)
		if !ok {
			return models.Reminder{}, err
		}

		if recent.OwnerID != ownerID {
			return models.Reminder{}, &domainerrors.ErrNotOwner{ID: id, UserID: ownerID}
		}

		if s.deliveries != nil {
			s.deliveries.Forget(ctx, id)
		}

		return s.followUp(ctx, recent)
	default:
		return models.Reminder{}, err
	}
}

// Restore загружает сохранённые напоминания и взводит таймеры заново.
func (s *ReminderService) Restore(ctx context.Context, loader Loader) error {
	reminders, err := loader.LoadAllActive(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при загрузке напоминаний: %w", err)
	}

	s.store.Load(reminders)
	rearmed := s.scheduler.Reconcile(ctx)

	s.logger.Info("Напоминания восстановлены",
		"loaded", len(reminders),
		"rearmed", rearmed,
	)

	return nil
}

func (s *ReminderService) validate(req CreateRequest) error {
	if req.OwnerID == "" {
		return &domainerrors.ErrMissingRequiredField{FieldName: "ownerId"}
	}

	if strings.TrimSpace(req.Message) == "" {
		return &domainerrors.ErrMissingRequiredField{FieldName: "message"}
	}

	if !req.Kind.Valid() {
		return &domainerrors.ErrInvalidTrigger{Kind: string(req.Kind), Reason: "неизвестный тип напоминания"}
	}

	if req.Trigger.Kind() != req.Kind {
		return &domainerrors.ErrInvalidTrigger{Kind: string(req.Kind), Reason: "триггер не соответствует типу напоминания"}
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}

	if _, ok := models.ParseRecurrence(string(recurrence)); !ok {
		return &domainerrors.ErrInvalidRecurrence{Value: string(recurrence)}
	}

	if req.Kind != models.KindTimer {
		if recurrence != models.RecurrenceNone {
			return &domainerrors.ErrInvalidRecurrence{Value: string(recurrence), Kind: string(req.Kind)}
		}

		return nil
	}

	return scheduler.CheckTimezone(req.Trigger.Timer.Timezone)
}

func (s *ReminderService) owned(ownerID, id string) (models.Reminder, error) {
	reminder, ok := s.store.Get(id)
	if !ok {
		return models.Reminder{}, &domainerrors.ErrReminderNotFound{ID: id}
	}

	if reminder.OwnerID != ownerID {
		return models.Reminder{}, &domainerrors.ErrNotOwner{ID: id, UserID: ownerID}
	}

	return reminder, nil
}

func (s *ReminderService) recent(ctx context.Context, id string) (models.Reminder, bool) {
	if s.deliveries == nil {
		return models.Reminder{}, false
	}

	return s.deliveries.Recent(ctx, id)
}

// alreadyRearmed сообщает, что повторяющееся напоминание уже сработало и ждёт следующего раза.
func (s *ReminderService) alreadyRearmed(reminder models.Reminder) bool {
	if reminder.Recurrence == models.RecurrenceNone || reminder.TriggeredCount == 0 {
		return false
	}

	fireAt, _ := reminder.FireAt()

	return fireAt.After(s.clock.Now().Add(s.snoozeOffset))
}

func (s *ReminderService) followUp(ctx context.Context, source models.Reminder) (models.Reminder, error) {
	timezone := ""
	if source.Trigger.Timer != nil {
		timezone = source.Trigger.Timer.Timezone
	}

	reminder := s.store.Create(ctx, models.Spec{
		OwnerID:         source.OwnerID,
		GroupID:         source.GroupID,
		OriginChannelID: source.OriginChannelID,
		Kind:            models.KindTimer,
		Trigger: models.Trigger{Timer: &models.TimerTrigger{
			FireAt:   s.clock.Now().Add(s.snoozeOffset).UTC(),
			Timezone: timezone,
		}},
		Message:    source.Message,
		Recurrence: models.RecurrenceNone,
	})

	s.scheduler.Arm(reminder)

	s.logger.Info("Напоминание отложено повторным созданием",
		"sourceId", source.ID,
		"id", reminder.ID,
	)

	return reminder, nil
}
