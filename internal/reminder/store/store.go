package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// Persister сохраняет изменения хранилища во внешнем хранилище.
type Persister interface {
	Persist(ctx context.Context, reminder *models.Reminder) error
	Remove(ctx context.Context, id string) error
}

// BatchRemover реализуется хранилищами, умеющими удалять пачку записей атомарно.
type BatchRemover interface {
	RemoveMany(ctx context.Context, ids []string) error
}

// Canceler снимает отложенный вызов, связанный с напоминанием.
type Canceler interface {
	Disarm(id string)
}

type Store struct {
	mu        sync.Mutex
	reminders map[string]*models.Reminder
	byOwner   map[string]map[string]struct{}
	byGroup   map[string]map[string]struct{}

	persister Persister
	canceler  Canceler
	clock     clock.Clock
	logger    *slog.Logger
}

func New(persister Persister, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		reminders: make(map[string]*models.Reminder),
		byOwner:   make(map[string]map[string]struct{}),
		byGroup:   make(map[string]map[string]struct{}),
		persister: persister,
		clock:     clk,
		logger:    logger,
	}
}

// SetCanceler регистрирует планировщик, который снимается при удалении напоминаний.
func (s *Store) SetCanceler(canceler Canceler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canceler = canceler
}

func (s *Store) Create(ctx context.Context, spec models.Spec) models.Reminder {
	now := s.clock.Now()

	recurrence := spec.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}

	reminder := &models.Reminder{
		ID:              uuid.NewString(),
		OwnerID:         spec.OwnerID,
		GroupID:         spec.GroupID,
		OriginChannelID: spec.OriginChannelID,
		Kind:            spec.Kind,
		Trigger:         spec.Trigger.Clone(),
		Message:         spec.Message,
		Recurrence:      recurrence,
		State:           models.StateActive,
		TriggeredCount:  0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insert(reminder)
	s.persist(ctx, reminder)

	s.logger.Info("Напоминание создано",
		"id", reminder.ID,
		"owner", reminder.OwnerID,
		"kind", reminder.Kind,
	)

	return reminder.Clone()
}

func (s *Store) Get(id string) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return models.Reminder{}, false
	}

	return reminder.Clone(), true
}

func (s *Store) ByOwner(ownerID string) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectActive(s.byOwner[ownerID])
}

func (s *Store) ByGroup(groupID string) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectActive(s.byGroup[groupID])
}

// Active возвращает активные напоминания указанных типов (всех, если типы не заданы).
func (s *Store) Active(kinds ...models.Kind) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Reminder, 0, len(s.reminders))

	for _, reminder := range s.reminders {
		if reminder.IsActive() && kindIn(reminder.Kind, kinds) {
			result = append(result, reminder.Clone())
		}
	}

	sortByCreation(result)

	return result
}

func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()

	reminder, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	s.unlink(reminder)
	s.remove(ctx, id)

	canceler := s.canceler
	s.mu.Unlock()

	if canceler != nil {
		canceler.Disarm(id)
	}

	s.logger.Info("Напоминание удалено", "id", id)

	return true
}

// DeleteFired удаляет напоминание, только если оно всё ещё в состоянии fired.
// Напоминание, отложенное во время доставки, остаётся на месте.
func (s *Store) DeleteFired(ctx context.Context, id string) bool {
	s.mu.Lock()

	reminder, ok := s.reminders[id]
	if !ok || reminder.State != models.StateFired {
		s.mu.Unlock()
		return false
	}

	s.unlink(reminder)
	s.remove(ctx, id)
	s.mu.Unlock()

	s.logger.Info("Сработавшее напоминание удалено", "id", id)

	return true
}

// Deactivate мягко удаляет напоминание, окончательно его удалит уборщик по истечении срока хранения.
func (s *Store) Deactivate(ctx context.Context, id string) bool {
	return s.finish(ctx, id, models.StateCancelled)
}

// Complete завершает напоминание без удаления записи.
func (s *Store) Complete(ctx context.Context, id string) bool {
	return s.finish(ctx, id, models.StateCompleted)
}

func (s *Store) finish(ctx context.Context, id string, state models.State) bool {
	s.mu.Lock()

	reminder, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	reminder.State = state
	reminder.UpdatedAt = s.clock.Now()
	s.persist(ctx, reminder)

	canceler := s.canceler
	s.mu.Unlock()

	if canceler != nil {
		canceler.Disarm(id)
	}

	return true
}

func (s *Store) IncrementTriggerCount(ctx context.Context, id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return 0, false
	}

	reminder.TriggeredCount++
	reminder.UpdatedAt = s.clock.Now()
	s.persist(ctx, reminder)

	return reminder.TriggeredCount, true
}

// Claim переводит напоминание по времени в состояние fired, если оно всё ещё активно
// и его момент срабатывания совпадает с тем, на который был взведён таймер.
func (s *Store) Claim(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.reminders[id]
	if !ok || !reminder.IsActive() {
		return models.Reminder{}, false
	}

	current, ok := reminder.FireAt()
	if !ok || !current.Equal(fireAt) {
		return models.Reminder{}, false
	}

	reminder.State = models.StateFired
	reminder.UpdatedAt = s.clock.Now()
	s.persist(ctx, reminder)

	return reminder.Clone(), true
}

// Reschedule задаёт новый момент срабатывания и возвращает напоминание в состояние active.
func (s *Store) Reschedule(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool) {
	return s.reschedule(ctx, id, fireAt, func(state models.State) bool {
		return state != models.StateCancelled
	})
}

// RescheduleFired переносит повторяющееся напоминание на следующее срабатывание,
// только если оно всё ещё в состоянии fired. Завершённое или отменённое во время
// доставки напоминание остаётся в своём состоянии.
func (s *Store) RescheduleFired(ctx context.Context, id string, fireAt time.Time) (models.Reminder, bool) {
	return s.reschedule(ctx, id, fireAt, func(state models.State) bool {
		return state == models.StateFired
	})
}

func (s *Store) reschedule(
	ctx context.Context,
	id string,
	fireAt time.Time,
	allowed func(models.State) bool,
) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.reminders[id]
	if !ok || reminder.Trigger.Timer == nil || !allowed(reminder.State) {
		return models.Reminder{}, false
	}

	reminder.Trigger.Timer.FireAt = fireAt.UTC()
	reminder.State = models.StateActive
	reminder.UpdatedAt = s.clock.Now()
	s.persist(ctx, reminder)

	return reminder.Clone(), true
}

// PurgeInactive удаляет завершённые и отменённые напоминания старше retention.
func (s *Store) PurgeInactive(ctx context.Context, retention time.Duration) []string {
	cutoff := s.clock.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []string

	for id, reminder := range s.reminders {
		if reminder.State != models.StateCompleted && reminder.State != models.StateCancelled {
			continue
		}

		if reminder.UpdatedAt.After(cutoff) {
			continue
		}

		s.unlink(reminder)
		purged = append(purged, id)
	}

	if len(purged) == 0 {
		return nil
	}

	if batch, ok := s.persister.(BatchRemover); ok {
		if err := batch.RemoveMany(ctx, purged); err != nil {
			s.logger.Error("Ошибка при удалении устаревших напоминаний из хранилища",
				"error", err,
				"count", len(purged),
			)
		}
	} else {
		for _, id := range purged {
			s.remove(ctx, id)
		}
	}

	s.logger.Info("Устаревшие напоминания удалены", "count", len(purged))

	return purged
}

// Load заменяет содержимое хранилища записями, загруженными при старте.
// Напоминания, прерванные во время доставки, снова становятся активными.
func (s *Store) Load(reminders []models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders = make(map[string]*models.Reminder, len(reminders))
	s.byOwner = make(map[string]map[string]struct{})
	s.byGroup = make(map[string]map[string]struct{})

	for i := range reminders {
		reminder := reminders[i].Clone()

		if reminder.State == models.StateFired {
			reminder.State = models.StateActive
		}

		s.insert(&reminder)
	}

	s.logger.Info("Напоминания загружены", "count", len(reminders))
}

func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.Stats{
		Total:  len(s.reminders),
		Owners: len(s.byOwner),
		Groups: len(s.byGroup),
		ByKind: make(map[models.Kind]int, len(models.AllKinds)),
	}

	for _, kind := range models.AllKinds {
		stats.ByKind[kind] = 0
	}

	for _, reminder := range s.reminders {
		if reminder.IsActive() {
			stats.Active++
		}

		stats.ByKind[reminder.Kind]++
	}

	return stats
}

func (s *Store) insert(reminder *models.Reminder) {
	s.reminders[reminder.ID] = reminder

	addToIndex(s.byOwner, reminder.OwnerID, reminder.ID)

	if reminder.GroupID != "" {
		addToIndex(s.byGroup, reminder.GroupID, reminder.ID)
	}
}

func (s *Store) unlink(reminder *models.Reminder) {
	delete(s.reminders, reminder.ID)

	removeFromIndex(s.byOwner, reminder.OwnerID, reminder.ID)

	if reminder.GroupID != "" {
		removeFromIndex(s.byGroup, reminder.GroupID, reminder.ID)
	}
}

func (s *Store) collectActive(ids map[string]struct{}) []models.Reminder {
	result := make([]models.Reminder, 0, len(ids))

	for id := range ids {
		if reminder, ok := s.reminders[id]; ok && reminder.IsActive() {
			result = append(result, reminder.Clone())
		}
	}

	sortByCreation(result)

	return result
}

func (s *Store) persist(ctx context.Context, reminder *models.Reminder) {
	if s.persister == nil {
		return
	}

	if err := s.persister.Persist(ctx, reminder); err != nil {
		s.logger.Error("Ошибка при сохранении напоминания",
			"error", err,
			"id", reminder.ID,
		)
	}
}

func (s *Store) remove(ctx context.Context, id string) {
	if s.persister == nil {
		return
	}

	if err := s.persister.Remove(ctx, id); err != nil {
		s.logger.Error("Ошибка при удалении напоминания из хранилища",
			"error", err,
			"id", id,
		)
	}
}

func addToIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}

	set[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		return
	}

	delete(set, id)

	if len(set) == 0 {
		delete(index, key)
	}
}

func kindIn(kind models.Kind, kinds []models.Kind) bool {
	if len(kinds) == 0 {
		return true
	}

	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}

func sortByCreation(reminders []models.Reminder) {
	sort.Slice(reminders, func(i, j int) bool {
		if reminders[i].CreatedAt.Equal(reminders[j].CreatedAt) {
			return reminders[i].ID < reminders[j].ID
		}

		return reminders[i].CreatedAt.Before(reminders[j].CreatedAt)
	})
}
