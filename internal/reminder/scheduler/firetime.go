package scheduler

import (
	"time"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// ResolveInstant переводит настенное время в часовом поясе tz в абсолютный момент.
// Смещение пояса берётся на указанную дату, а не на текущий момент, поэтому
// переходы на летнее время учитываются. Пустой или неизвестный пояс даёт ErrClockSkew.
func ResolveInstant(local models.LocalDateTime, tz string) (time.Time, error) {
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	naive := time.Date(local.Year, local.Month, local.Day, local.Hour, local.Minute, 0, 0, time.UTC)

	_, offset := naive.In(loc).Zone()
	instant := naive.Add(-time.Duration(offset) * time.Second)

	// Вблизи перехода смещение в найденный момент может отличаться от исходного.
	if _, actual := instant.In(loc).Zone(); actual != offset {
		instant = naive.Add(-time.Duration(actual) * time.Second)
	}

	return instant.UTC(), nil
}

// NextOccurrence сдвигает дату срабатывания на days календарных дней в поясе tz,
// сохраняя локальное время суток, и заново вычисляет смещение.
func NextOccurrence(fireAt time.Time, tz string, days int) (time.Time, error) {
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	local := models.LocalDateTimeOf(fireAt.In(loc))

	return ResolveInstant(local.AddDays(days), tz)
}

// OffsetDays возвращает сдвиг в днях для повторения или 0, если повторения нет.
func (s Settings) OffsetDays(recurrence models.Recurrence) int {
	switch recurrence {
	case models.RecurrenceDaily:
		return s.DailyOffsetDays
	case models.RecurrenceWeekly:
		return s.WeeklyOffsetDays
	default:
		return 0
	}
}

// CheckTimezone проверяет, что смещение пояса tz можно определить.
func CheckTimezone(tz string) error {
	_, err := loadLocation(tz)
	return err
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, &domainerrors.ErrClockSkew{Timezone: tz}
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &domainerrors.ErrClockSkew{Timezone: tz, Cause: err}
	}

	return loc, nil
}
