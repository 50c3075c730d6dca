package trigger

import (
	"fmt"
	"strings"
	"time"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// ParseLocalDateTime разбирает дату "DD/MM/YYYY" и время "HH:MM" без привязки к часовому поясу.
func ParseLocalDateTime(date, clock string) (models.LocalDateTime, error) {
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)

	parsed, err := time.Parse("02/01/2006 15:04", value)
	if err != nil {
		return models.LocalDateTime{}, &domainerrors.ErrInvalidDateTime{
			Value:  value,
			Reason: "ожидается формат ДД/ММ/ГГГГ ЧЧ:ММ",
		}
	}

	return models.LocalDateTimeOf(parsed), nil
}

// Describe возвращает человекочитаемое описание триггера.
func Describe(trigger models.Trigger) string {
	switch trigger.Kind() {
	case models.KindTimer:
		return describeTimer(trigger.Timer)
	case models.KindMention:
		return fmt.Sprintf("Когда упомянут пользователя %s", trigger.Mention.TargetUserID)
	case models.KindKeyword:
		return fmt.Sprintf("Когда появится слово «%s»", trigger.Keyword.Pattern)
	case models.KindReaction:
		if trigger.Reaction.ChannelID != "" {
			return fmt.Sprintf("Когда добавят реакцию %s в канале %s", trigger.Reaction.Emoji, trigger.Reaction.ChannelID)
		}

		return fmt.Sprintf("Когда добавят реакцию %s", trigger.Reaction.Emoji)
	case models.KindThread:
		return fmt.Sprintf("При активности в треде %s", trigger.Thread.ThreadID)
	default:
		return "Неизвестный триггер"
	}
}

// FormatDuration форматирует длительность в минутах как "1ч 25мин".
func FormatDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	hours := minutes / 60
	minutes %= 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dч %dмин", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dч", hours)
	default:
		return fmt.Sprintf("%dмин", minutes)
	}
}

func describeTimer(timer *models.TimerTrigger) string {
	at := timer.FireAt

	if loc, err := time.LoadLocation(timer.Timezone); err == nil && timer.Timezone != "" {
		at = at.In(loc)
	}

	return fmt.Sprintf("В %s (%s)", at.Format("02/01/2006 15:04"), timezoneLabel(timer.Timezone))
}

func timezoneLabel(tz string) string {
	if tz == "" {
		return "UTC"
	}

	return tz
}
