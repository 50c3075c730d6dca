package repository

import (
	"context"
	"time"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// InstrumentedRepository записывает длительность и исход каждого обращения к хранилищу.
type InstrumentedRepository struct {
	inner   ReminderRepository
	backend string
}

func NewInstrumentedRepository(inner ReminderRepository, backend string) *InstrumentedRepository {
	return &InstrumentedRepository{
		inner:   inner,
		backend: backend,
	}
}

func (r *InstrumentedRepository) Persist(ctx context.Context, reminder *models.Reminder) error {
	start := time.Now()
	return r.record("persist", start, r.inner.Persist(ctx, reminder))
}

func (r *InstrumentedRepository) Remove(ctx context.Context, id string) error {
	start := time.Now()
	return r.record("remove", start, r.inner.Remove(ctx, id))
}

func (r *InstrumentedRepository) RemoveMany(ctx context.Context, ids []string) error {
	start := time.Now()
	return r.record("remove_many", start, r.inner.RemoveMany(ctx, ids))
}

func (r *InstrumentedRepository) LoadAllActive(ctx context.Context) ([]models.Reminder, error) {
	start := time.Now()
	reminders, err := r.inner.LoadAllActive(ctx)

	return reminders, r.record("load_all_active", start, err)
}

func (r *InstrumentedRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	purged, err := r.inner.PurgeInactive(ctx, cutoff)

	return purged, r.record("purge_inactive", start, err)
}

func (r *InstrumentedRepository) record(operation string, start time.Time, err error) error {
	status := "success"
	if err != nil {
		status = "error"
	}

	metrics.RecordDatabaseQuery(r.backend+"_"+operation, status, time.Since(start))

	return err
}
