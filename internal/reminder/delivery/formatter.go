package delivery

import (
	"fmt"
	"strings"
	"time"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/trigger"
)

const notificationTitle = "🔔 Напоминание сработало"

// Render собирает уведомление для сработавшего напоминания.
func Render(reminder models.Reminder, fireCtx models.FireContext, snoozeOffset time.Duration) models.Notification {
	lines := []string{"Триггер: " + describeReason(reminder, fireCtx)}

	if fireCtx.Excerpt != "" && fireCtx.Reason != models.ReasonReaction {
		lines = append(lines, "Сообщение: "+fireCtx.Excerpt)
	}

	if fireCtx.EventURL != "" {
		lines = append(lines, "Ссылка: "+fireCtx.EventURL)
	}

	if fireCtx.ChannelID != "" && fireCtx.ChannelID != reminder.OriginChannelID {
		lines = append(lines, "Канал: <#"+fireCtx.ChannelID+">")
	}

	notification := models.Notification{
		ReminderID: reminder.ID,
		OwnerID:    reminder.OwnerID,
		Kind:       reminder.Kind,
		Title:      notificationTitle,
		Body:       reminder.Message,
		Context:    strings.Join(lines, "\n"),
		Footer:     fmt.Sprintf("Напоминание #%s | Сработало %dx", reminder.ID, reminder.TriggeredCount+1),
		FiredAt:    fireCtx.At,
	}

	if reminder.Kind == models.KindTimer {
		notification.Actions = []models.Action{
			{Type: models.ActionAcknowledge, Label: "✅ Готово"},
			{Type: models.ActionSnooze, Label: "⏰ Отложить на " + trigger.FormatDuration(snoozeOffset)},
		}
	}

	return notification
}

func describeReason(reminder models.Reminder, fireCtx models.FireContext) string {
	switch fireCtx.Reason {
	case models.ReasonMention:
		if reminder.Trigger.Mention != nil {
			return fmt.Sprintf("упоминание <@%s> от <@%s>", reminder.Trigger.Mention.TargetUserID, fireCtx.ActorID)
		}
	case models.ReasonKeyword:
		if reminder.Trigger.Keyword != nil {
			return fmt.Sprintf("найдено ключевое слово «%s»", reminder.Trigger.Keyword.Pattern)
		}
	case models.ReasonReaction:
		return fmt.Sprintf("реакция %s от <@%s>", fireCtx.Excerpt, fireCtx.ActorID)
	case models.ReasonThread:
		return "новое сообщение в треде"
	}

	return trigger.Describe(reminder.Trigger)
}
