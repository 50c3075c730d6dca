package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jmhodges/clock"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/trigger"
)

const (
	helpText = `Доступные команды:
/start - приветствие
/help - список команд
/remind <триггер> | <текст> - создать напоминание
/at ДД/ММ/ГГГГ ЧЧ:ММ [часовой пояс] [daily|weekly] | <текст> - напоминание на дату
/list - ваши напоминания
/delete <id> - удалить напоминание
/complete <id> - отметить выполненным
/snooze <id> - отложить напоминание
/stats - статистика

Триггеры для /remind:
dans 30m, in 1h 25mn, через 2h - через заданное время
"deploy" или keyword: deploy - при появлении слова
<@123> - при упоминании пользователя
emoji:👍 - при реакции, можно указать канал <#123>
thread:123 - при ответе в треде`

	unknownCommandText = "Неизвестная команда. Введите /help для просмотра доступных команд."
	remindUsageText    = "Использование: /remind <триггер> | <текст>\nНапример: /remind dans 30m | Пауза"
	atUsageText        = "Использование: /at ДД/ММ/ГГГГ ЧЧ:ММ [часовой пояс] [daily|weekly] | <текст>\n" +
		"Например: /at 24/12/2026 09:00 Europe/Paris daily | Стендап"
)

type ReminderService interface {
	CreateFromText(
		ctx context.Context,
		ownerID, groupID, channelID, triggerText, message, timezone string,
	) (models.Reminder, error)

	CreateAt(
		ctx context.Context,
		ownerID, groupID, channelID string,
		local models.LocalDateTime,
		timezone string,
		recurrence models.Recurrence,
		message string,
	) (models.Reminder, error)

	DeleteReminder(ctx context.Context, ownerID, id string) (bool, error)

	ListReminders(ownerID string) []models.Reminder

	GetStats() models.Stats

	Complete(ctx context.Context, ownerID, id string) error

	Snooze(ctx context.Context, ownerID, id string) (models.Reminder, error)
}

// BotService переводит команды чата в операции над напоминаниями и формирует ответы.
type BotService struct {
	reminders       ReminderService
	clock           clock.Clock
	defaultTimezone string
	logger          *slog.Logger
}

func NewBotService(reminders ReminderService, clk clock.Clock, defaultTimezone string, logger *slog.Logger) *BotService {
	return &BotService{
		reminders:       reminders,
		clock:           clk,
		defaultTimezone: defaultTimezone,
		logger:          logger,
	}
}

func (s *BotService) ProcessCommand(ctx context.Context, command *models.Command) (string, error) {
	//nolint:exhaustive // CommandUnknown обрабатывается в блоке default
	switch command.Type {
	case models.CommandStart:
		return "Привет! Я напомню о делах по времени, по ключевым словам, упоминаниям, реакциям и ответам в тредах. " +
			"Введите /help для просмотра доступных команд.", nil
	case models.CommandHelp:
		return helpText, nil
	case models.CommandRemind:
		return s.handleRemindCommand(ctx, command)
	case models.CommandAt:
		return s.handleAtCommand(ctx, command)
	case models.CommandList:
		return s.handleListCommand(command), nil
	case models.CommandDelete:
		return s.handleDeleteCommand(ctx, command)
	case models.CommandComplete:
		return s.handleCompleteCommand(ctx, ownerOf(command), strings.TrimSpace(command.Args))
	case models.CommandSnooze:
		return s.handleSnoozeCommand(ctx, ownerOf(command), strings.TrimSpace(command.Args))
	case models.CommandStats:
		return s.handleStatsCommand(), nil
	default:
		return unknownCommandText, &domainerrors.ErrUnknownCommand{Command: command.Text}
	}
}

// ProcessCallback обрабатывает нажатие кнопки уведомления с данными "ack:<id>" или "snooze:<id>".
func (s *BotService) ProcessCallback(ctx context.Context, userID int64, data string) (string, error) {
	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return "Неизвестное действие.", nil
	}

	ownerID := strconv.FormatInt(userID, 10)

	switch models.ActionType(action) {
	case models.ActionAcknowledge:
		return s.handleCompleteCommand(ctx, ownerID, id)
	case models.ActionSnooze:
		return s.handleSnoozeCommand(ctx, ownerID, id)
	default:
		return "Неизвестное действие.", nil
	}
}

func (s *BotService) handleRemindCommand(ctx context.Context, command *models.Command) (string, error) {
	triggerText, message, ok := splitMessage(command.Args)
	if !ok {
		return remindUsageText, nil
	}

	reminder, err := s.reminders.CreateFromText(
		ctx,
		ownerOf(command),
		groupOf(command),
		strconv.FormatInt(command.ChatID, 10),
		triggerText,
		message,
		s.defaultTimezone,
	)
	if err != nil {
		return s.userError(err)
	}

	return s.created(reminder), nil
}

func (s *BotService) handleAtCommand(ctx context.Context, command *models.Command) (string, error) {
	spec, message, ok := splitMessage(command.Args)
	if !ok {
		return atUsageText, nil
	}

	fields := strings.Fields(spec)
	if len(fields) < 2 {
		return atUsageText, nil
	}

	local, err := trigger.ParseLocalDateTime(fields[0], fields[1])
	if err != nil {
		return s.userError(err)
	}

	timezone := s.defaultTimezone
	recurrence := models.RecurrenceNone

	for _, field := range fields[2:] {
		if parsed, isRecurrence := models.ParseRecurrence(strings.ToLower(field)); isRecurrence {
			recurrence = parsed
			continue
		}

		timezone = field
	}

	reminder, err := s.reminders.CreateAt(
		ctx,
		ownerOf(command),
		groupOf(command),
		strconv.FormatInt(command.ChatID, 10),
		local,
		timezone,
		recurrence,
		message,
	)
	if err != nil {
		return s.userError(err)
	}

	return s.created(reminder), nil
}

func (s *BotService) handleListCommand(command *models.Command) string {
	reminders := s.reminders.ListReminders(ownerOf(command))

	var active []models.Reminder

	for _, reminder := range reminders {
		if reminder.State == models.StateActive || reminder.State == models.StateFired {
			active = append(active, reminder)
		}
	}

	if len(active) == 0 {
		return "У вас нет активных напоминаний."
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	var result strings.Builder

	result.WriteString("Ваши напоминания:\n\n")

	for i, reminder := range active {
		result.WriteString(fmt.Sprintf("%d. #%s %s\n", i+1, reminder.ID, reminder.Message))
		result.WriteString(fmt.Sprintf("   %s\n", trigger.Describe(reminder.Trigger)))

		if reminder.Recurrence != models.RecurrenceNone {
			result.WriteString(fmt.Sprintf("   Повтор: %s\n", recurrenceLabel(reminder.Recurrence)))
		}

		if reminder.TriggeredCount > 0 {
			result.WriteString(fmt.Sprintf("   Сработало: %d\n", reminder.TriggeredCount))
		}
	}

	return result.String()
}

func (s *BotService) handleDeleteCommand(ctx context.Context, command *models.Command) (string, error) {
	id := strings.TrimSpace(command.Args)
	if id == "" {
		return "Использование: /delete <id>", nil
	}

	if _, err := s.reminders.DeleteReminder(ctx, ownerOf(command), id); err != nil {
		return s.userError(err)
	}

	return fmt.Sprintf("🗑 Напоминание #%s удалено.", id), nil
}

func (s *BotService) handleCompleteCommand(ctx context.Context, ownerID, id string) (string, error) {
	if id == "" {
		return "Использование: /complete <id>", nil
	}

	if err := s.reminders.Complete(ctx, ownerID, id); err != nil {
		return s.userError(err)
	}

	return fmt.Sprintf("✅ Напоминание #%s выполнено.", id), nil
}

func (s *BotService) handleSnoozeCommand(ctx context.Context, ownerID, id string) (string, error) {
	if id == "" {
		return "Использование: /snooze <id>", nil
	}

	reminder, err := s.reminders.Snooze(ctx, ownerID, id)
	if err != nil {
		return s.userError(err)
	}

	fireAt, _ := reminder.FireAt()

	return fmt.Sprintf("⏸ Напоминание #%s отложено, сработает через %s.",
		reminder.ID, trigger.FormatDuration(fireAt.Sub(s.clock.Now()))), nil
}

func (s *BotService) handleStatsCommand() string {
	stats := s.reminders.GetStats()

	var result strings.Builder

	result.WriteString("📊 Статистика напоминаний\n\n")
	result.WriteString(fmt.Sprintf("Всего: %d\n", stats.Total))
	result.WriteString(fmt.Sprintf("Активных: %d\n", stats.Active))
	result.WriteString(fmt.Sprintf("Пользователей: %d\n", stats.Owners))
	result.WriteString(fmt.Sprintf("Групп: %d\n", stats.Groups))

	for _, kind := range models.AllKinds {
		if count := stats.ByKind[kind]; count > 0 {
			result.WriteString(fmt.Sprintf("  %s: %d\n", kind, count))
		}
	}

	return result.String()
}

func (s *BotService) created(reminder models.Reminder) string {
	text := fmt.Sprintf("✅ Напоминание #%s создано.\n%s", reminder.ID, trigger.Describe(reminder.Trigger))

	if fireAt, ok := reminder.FireAt(); ok {
		text += fmt.Sprintf("\nСработает через %s.", trigger.FormatDuration(fireAt.Sub(s.clock.Now())))
	}

	if reminder.Recurrence != models.RecurrenceNone {
		text += fmt.Sprintf("\nПовтор: %s.", recurrenceLabel(reminder.Recurrence))
	}

	return text
}

// userError превращает ошибки ввода в ответ пользователю, остальные возвращает как есть.
func (s *BotService) userError(err error) (string, error) {
	var rateLimited *domainerrors.ErrRateLimited

	switch {
	case domainerrors.IsValidation(err):
		return "❌ " + capitalize(err.Error()), nil
	case errors.Is(err, &domainerrors.ErrReminderNotFound{}):
		return "Напоминание не найдено.", nil
	case errors.Is(err, &domainerrors.ErrNotOwner{}):
		return "Это напоминание принадлежит другому пользователю.", nil
	case errors.Is(err, &domainerrors.ErrClockSkew{}):
		return "❌ " + capitalize(err.Error()), nil
	case errors.As(err, &rateLimited):
		return "⏳ " + capitalize(err.Error()), nil
	default:
		s.logger.Error("Ошибка при выполнении команды",
			"error", err,
		)

		return "", err
	}
}

func splitMessage(args string) (string, string, bool) {
	head, message, ok := strings.Cut(args, "|")
	head = strings.TrimSpace(head)
	message = strings.TrimSpace(message)

	if !ok || head == "" || message == "" {
		return "", "", false
	}

	return head, message, true
}

func ownerOf(command *models.Command) string {
	return strconv.FormatInt(command.UserID, 10)
}

// groupOf возвращает пустую группу для личного чата.
func groupOf(command *models.Command) string {
	if command.IsPrivate {
		return ""
	}

	return strconv.FormatInt(command.ChatID, 10)
}

func recurrenceLabel(recurrence models.Recurrence) string {
	switch recurrence {
	case models.RecurrenceDaily:
		return "ежедневно"
	case models.RecurrenceWeekly:
		return "еженедельно"
	default:
		return "нет"
	}
}

func capitalize(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
