package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmhodges/clock"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type ReminderStore interface {
	Get(id string) (models.Reminder, bool)
	Active(kinds ...models.Kind) []models.Reminder
	Claim(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool)
	Reschedule(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool)
	RescheduleFired(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool)
	Complete(ctx context.Context, id string) bool
	DeleteFired(ctx context.Context, id string) bool
	IncrementTriggerCount(ctx context.Context, id string) (int, bool)
	PurgeInactive(ctx context.Context, retention time.Duration) []string
}

type Dispatcher interface {
	Deliver(ctx context.Context, reminder models.Reminder, fireCtx models.FireContext) models.DeliveryResult
}

type Settings struct {
	GraceWindow      time.Duration
	SweepInterval    time.Duration
	JanitorInterval  time.Duration
	RetentionWindow  time.Duration
	DailyOffsetDays  int
	WeeklyOffsetDays int
}

func DefaultSettings() Settings {
	return Settings{
		GraceWindow:      5 * time.Minute,
		SweepInterval:    30 * time.Second,
		JanitorInterval:  time.Hour,
		RetentionWindow:  30 * 24 * time.Hour,
		DailyOffsetDays:  1,
		WeeklyOffsetDays: 7,
	}
}

type alarm struct {
	fireAt time.Time
	timer  *clock.Timer
	cancel chan struct{}
}

func (a *alarm) stop() {
	a.timer.Stop()
	close(a.cancel)
}

// Scheduler держит не более одного взведённого таймера на напоминание.
// Состояние напоминаний хранится только в ReminderStore: периодическая сверка
// восстанавливает все таймеры из него, например после перезапуска.
type Scheduler struct {
	store      ReminderStore
	dispatcher Dispatcher
	clock      clock.Clock
	settings   Settings
	cron       *gocron.Scheduler
	logger     *slog.Logger

	mu       sync.Mutex
	armed    map[string]*alarm
	inflight map[string]chan struct{}
	stopped  bool
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(
	store ReminderStore,
	dispatcher Dispatcher,
	clk clock.Clock,
	settings Settings,
	logger *slog.Logger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		clock:      clk,
		settings:   settings,
		cron:       gocron.NewScheduler(time.UTC),
		logger:     logger,
		armed:      make(map[string]*alarm),
		inflight:   make(map[string]chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() error {
	s.logger.Info("Запуск планировщика напоминаний",
		"sweepInterval", s.settings.SweepInterval.String(),
		"graceWindow", s.settings.GraceWindow.String(),
	)

	_, err := s.cron.Every(s.settings.SweepInterval).Do(func() {
		s.Reconcile(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке сверки таймеров: %w", err)
	}

	_, err = s.cron.Every(s.settings.JanitorInterval).Do(func() {
		purged := s.store.PurgeInactive(s.ctx, s.settings.RetentionWindow)
		if len(purged) > 0 {
			s.logger.Info("Уборка завершённых напоминаний", "count", len(purged))
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке уборки напоминаний: %w", err)
	}

	s.cron.StartAsync()

	return nil
}

// AddPeriodicJob регистрирует дополнительную периодическую задачу рядом со сверкой и уборкой.
func (s *Scheduler) AddPeriodicJob(name string, interval time.Duration, job func(ctx context.Context)) error {
	if _, err := s.cron.Every(interval).Do(func() { job(s.ctx) }); err != nil {
		return fmt.Errorf("ошибка при настройке задачи %s: %w", name, err)
	}

	s.logger.Info("Периодическая задача добавлена",
		"job", name,
		"interval", interval.String(),
	)

	return nil
}

func (s *Scheduler) Stop() {
	s.logger.Info("Остановка планировщика напоминаний")
	s.cron.Stop()

	s.mu.Lock()
	s.stopped = true

	for id, a := range s.armed {
		a.stop()
		delete(s.armed, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Arm взводит таймер напоминания, заменяя ранее взведённый для того же ID.
// Опоздание в пределах окна GraceWindow приводит к немедленному срабатыванию,
// более старое напоминание завершается без уведомления.
func (s *Scheduler) Arm(reminder models.Reminder) {
	fireAt, ok := reminder.FireAt()
	if !ok || !reminder.IsActive() {
		return
	}

	delay := fireAt.Sub(s.clock.Now())

	if delay <= 0 {
		s.Disarm(reminder.ID)

		if -delay <= s.settings.GraceWindow {
			s.logger.Info("Напоминание опоздало в пределах допустимого окна, срабатывает сразу",
				"id", reminder.ID,
				"late", (-delay).String(),
			)

			s.launch(func() { s.fire(reminder.ID, fireAt) })

			return
		}

		s.logger.Warn("Напоминание устарело и завершено без уведомления",
			"id", reminder.ID,
			"fireAt", fireAt,
			"late", (-delay).String(),
		)

		metrics.StaleAlarms.Inc()
		s.store.Complete(s.ctx, reminder.ID)

		return
	}

	a := &alarm{
		fireAt: fireAt,
		timer:  s.clock.NewTimer(delay),
		cancel: make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		a.timer.Stop()
		return
	}

	if previous, exists := s.armed[reminder.ID]; exists {
		previous.stop()
	}

	s.armed[reminder.ID] = a

	s.wg.Add(1)

	go s.wait(reminder.ID, a)
}

// Disarm снимает таймер напоминания и дожидается завершения уже начатой доставки,
// поэтому после возврата напоминание гарантированно не будет доставлено.
func (s *Scheduler) Disarm(id string) {
	s.mu.Lock()

	if a, exists := s.armed[id]; exists {
		a.stop()
		delete(s.armed, id)
	}

	done := s.inflight[id]
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Scheduler) IsArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.armed[id]

	return exists
}

func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.armed)
}

// Reconcile взводит все активные напоминания по времени, для которых нет таймера.
func (s *Scheduler) Reconcile(_ context.Context) int {
	start := s.clock.Now()
	rearmed := 0

	for _, reminder := range s.store.Active(models.KindTimer) {
		if s.IsArmed(reminder.ID) {
			continue
		}

		s.Arm(reminder)
		rearmed++
	}

	metrics.RecordSweep(s.clock.Now().Sub(start), s.ArmedCount())

	if rearmed > 0 {
		s.logger.Info("Сверка таймеров завершена", "rearmed", rearmed)
	}

	return rearmed
}

// Snooze откладывает напоминание на offset от большего из текущего момента
// и запланированного времени и взводит его заново.
func (s *Scheduler) Snooze(ctx context.Context, id string, offset time.Duration) (models.Reminder, bool) {
	reminder, ok := s.store.Get(id)
	if !ok || reminder.Kind != models.KindTimer || reminder.State == models.StateCancelled {
		return models.Reminder{}, false
	}

	s.Disarm(id)

	base := s.clock.Now()
	if fireAt, _ := reminder.FireAt(); fireAt.After(base) {
		base = fireAt
	}

	updated, ok := s.store.Reschedule(ctx, id, base.Add(offset))
	if !ok {
		return models.Reminder{}, false
	}

	s.Arm(updated)

	s.logger.Info("Напоминание отложено",
		"id", id,
		"fireAt", updated.Trigger.Timer.FireAt,
	)

	return updated, true
}

func (s *Scheduler) launch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Scheduler) wait(id string, a *alarm) {
	defer s.wg.Done()

	select {
	case <-a.timer.C:
	case <-a.cancel:
		return
	case <-s.ctx.Done():
		return
	}

	s.mu.Lock()
	current := s.armed[id] == a

	if current {
		delete(s.armed, id)
	}
	s.mu.Unlock()

	if current {
		s.fire(id, a.fireAt)
	}
}

func (s *Scheduler) fire(id string, fireAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FirePanics.Inc()
			s.logger.Error("Паника при срабатывании напоминания",
				"id", id,
				"panic", r,
			)
		}
	}()

	reminder, ok := s.deliver(id, fireAt)
	if !ok {
		return
	}

	metrics.RecordTimerFired(string(reminder.Recurrence))

	s.advance(reminder)
}

// deliver захватывает напоминание и доставляет его. Пока доставка идёт,
// Disarm для этого ID ждёт её завершения.
func (s *Scheduler) deliver(id string, fireAt time.Time) (models.Reminder, bool) {
	s.mu.Lock()

	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return models.Reminder{}, false
	}

	done := make(chan struct{})
	s.inflight[id] = done
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		close(done)
	}()

	reminder, ok := s.store.Claim(s.ctx, id, fireAt)
	if !ok {
		return models.Reminder{}, false
	}

	result := s.dispatcher.Deliver(s.ctx, reminder, models.FireContext{
		Reason:    models.ReasonTimer,
		ChannelID: reminder.OriginChannelID,
		At:        s.clock.Now(),
	})

	if result.Delivered() {
		s.store.IncrementTriggerCount(s.ctx, id)
	} else {
		s.logger.Error("Не удалось доставить напоминание",
			"id", id,
			"error", result.Err,
		)
	}

	return reminder, true
}

func (s *Scheduler) advance(reminder models.Reminder) {
	days := s.settings.OffsetDays(reminder.Recurrence)
	if days == 0 {
		s.store.DeleteFired(s.ctx, reminder.ID)
		return
	}

	next, err := NextOccurrence(reminder.Trigger.Timer.FireAt, reminder.Trigger.Timer.Timezone, days)
	if err != nil {
		s.logger.Error("Не удалось вычислить следующее срабатывание",
			"id", reminder.ID,
			"error", err,
		)

		s.store.Complete(s.ctx, reminder.ID)

		return
	}

	updated, ok := s.store.RescheduleFired(s.ctx, reminder.ID, next)
	if !ok {
		s.logger.Info("Повторяющееся напоминание изменено во время доставки и не взводится заново",
			"id", reminder.ID,
		)

		return
	}

	s.Arm(updated)
}
