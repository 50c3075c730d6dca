package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// DeliveryLog хранит недавно доставленные напоминания, чтобы кнопка «Отложить»
// работала и после удаления одноразового напоминания.
type DeliveryLog interface {
	Record(ctx context.Context, reminder models.Reminder) error
	Lookup(ctx context.Context, id string) (models.Reminder, bool, error)
	Forget(ctx context.Context, id string) error
}

type logEntry struct {
	reminder  models.Reminder
	expiresAt time.Time
}

type MemoryDeliveryLog struct {
	mu      sync.Mutex
	entries map[string]logEntry
	ttl     time.Duration
	clock   clock.Clock
}

func NewMemoryDeliveryLog(ttl time.Duration, clk clock.Clock) *MemoryDeliveryLog {
	return &MemoryDeliveryLog{
		entries: make(map[string]logEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

func (l *MemoryDeliveryLog) Record(_ context.Context, reminder models.Reminder) error {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, entry := range l.entries {
		if !entry.expiresAt.After(now) {
			delete(l.entries, id)
		}
	}

	l.entries[reminder.ID] = logEntry{
		reminder:  reminder.Clone(),
		expiresAt: now.Add(l.ttl),
	}

	return nil
}

func (l *MemoryDeliveryLog) Lookup(_ context.Context, id string) (models.Reminder, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return models.Reminder{}, false, nil
	}

	if !entry.expiresAt.After(l.clock.Now()) {
		delete(l.entries, id)
		return models.Reminder{}, false, nil
	}

	return entry.reminder.Clone(), true, nil
}

func (l *MemoryDeliveryLog) Forget(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, id)

	return nil
}
