package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// FileSnapshot хранит снимок хранилища в файле для режима без внешней базы.
type FileSnapshot struct {
	Path string
}

// LoadAllActive читает снимок и возвращает напоминания, которые ещё могут сработать.
// Отсутствующий файл означает пустое хранилище.
func (f FileSnapshot) LoadAllActive(_ context.Context) ([]models.Reminder, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении снимка %s: %w", f.Path, err)
	}

	snapshot, err := ParseSnapshot(data)
	if err != nil {
		return nil, err
	}

	active := make([]models.Reminder, 0, len(snapshot.Reminders))

	for _, reminder := range snapshot.Reminders {
		if reminder.State == models.StateActive || reminder.State == models.StateFired {
			active = append(active, reminder)
		}
	}

	return active, nil
}

// Save записывает снимок через временный файл, чтобы не оставить половину записи при сбое.
func (f FileSnapshot) Save(s *Store) error {
	data, err := s.ExportJSON()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка при создании временного файла снимка: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка при записи снимка: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка при записи снимка: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("ошибка при сохранении снимка %s: %w", f.Path, err)
	}

	return nil
}
