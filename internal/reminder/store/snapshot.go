package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const SnapshotVersion = "2.0.0"

type Snapshot struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Reminders  []models.Reminder `json:"reminders"`
}

func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := make([]models.Reminder, 0, len(s.reminders))
	for _, reminder := range s.reminders {
		reminders = append(reminders, reminder.Clone())
	}

	sortByCreation(reminders)

	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock.Now(),
		Reminders:  reminders,
	}
}

func (s *Store) ExportJSON() ([]byte, error) {
	data, err := json.Marshal(s.Export())
	if err != nil {
		return nil, fmt.Errorf("ошибка при сериализации снимка напоминаний: %w", err)
	}

	return data, nil
}

// ParseSnapshot разбирает снимок и проверяет его версию.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка при разборе снимка напоминаний: %w", err)
	}

	if snapshot.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("неподдерживаемая версия снимка: %s", snapshot.Version)
	}

	return snapshot, nil
}

// ImportJSON заменяет содержимое хранилища снимком и сохраняет каждую запись.
func (s *Store) ImportJSON(ctx context.Context, data []byte) (int, error) {
	snapshot, err := ParseSnapshot(data)
	if err != nil {
		return 0, err
	}

	s.Load(snapshot.Reminders)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reminder := range s.reminders {
		s.persist(ctx, reminder)
	}

	return len(snapshot.Reminders), nil
}

// Verify сверяет индексы по владельцу и группе с основной коллекцией.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, ids := range s.byOwner {
		for id := range ids {
			reminder, ok := s.reminders[id]
			if !ok {
				return fmt.Errorf("индекс владельца %s ссылается на отсутствующее напоминание %s", owner, id)
			}

			if reminder.OwnerID != owner {
				return fmt.Errorf("напоминание %s в индексе владельца %s принадлежит %s", id, owner, reminder.OwnerID)
			}
		}
	}

	for group, ids := range s.byGroup {
		for id := range ids {
			reminder, ok := s.reminders[id]
			if !ok {
				return fmt.Errorf("индекс группы %s ссылается на отсутствующее напоминание %s", group, id)
			}

			if reminder.GroupID != group {
				return fmt.Errorf("напоминание %s в индексе группы %s относится к %s", id, group, reminder.GroupID)
			}
		}
	}

	for id, reminder := range s.reminders {
		if _, ok := s.byOwner[reminder.OwnerID][id]; !ok {
			return fmt.Errorf("напоминание %s отсутствует в индексе владельца %s", id, reminder.OwnerID)
		}

		if reminder.GroupID == "" {
			continue
		}

		if _, ok := s.byGroup[reminder.GroupID][id]; !ok {
			return fmt.Errorf("напоминание %s отсутствует в индексе группы %s", id, reminder.GroupID)
		}
	}

	return nil
}
