package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-reminders/internal/bot/domain"
	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const handleTimeout = 10 * time.Second

type CommandProcessor interface {
	ProcessCommand(ctx context.Context, command *models.Command) (string, error)

	ProcessCallback(ctx context.Context, userID int64, data string) (string, error)
}

type MessageHandler interface {
	OnMessage(ctx context.Context, event models.MessageEvent) int
}

// Poller получает обновления Telegram: команды и нажатия кнопок уходят в
// обработчик команд, остальные сообщения в сопоставление контекстных напоминаний.
// Без обработчика сообщений (события приходят из Kafka) обычные сообщения пропускаются.
type Poller struct {
	telegramClient domain.TelegramClientAPI
	commands       CommandProcessor
	messages       MessageHandler
	logger         *slog.Logger
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
}

func NewPoller(
	telegramClient domain.TelegramClientAPI,
	commands CommandProcessor,
	messages MessageHandler,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		telegramClient: telegramClient,
		commands:       commands,
		messages:       messages,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

func (p *Poller) Start() error {
	p.logger.Info("Запуск Telegram поллера")

	bot := p.telegramClient.GetBot()
	if bot == nil {
		return fmt.Errorf("не удалось получить доступ к API бота")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := bot.GetUpdatesChan(u)

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		for {
			select {
			case <-p.stopChan:
				p.logger.Info("Получен сигнал остановки поллера")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}

				ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
				p.HandleUpdate(ctx, &update)
				cancel()
			}
		}
	}()

	return nil
}

func (p *Poller) Close() error {
	p.stopOnce.Do(func() {
		p.logger.Info("Остановка Telegram поллера")

		if bot := p.telegramClient.GetBot(); bot != nil {
			bot.StopReceivingUpdates()
		}

		close(p.stopChan)
	})

	p.wg.Wait()

	return nil
}

func (p *Poller) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		p.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			p.handleCommand(ctx, update.Message)
			return
		}

		p.handleMessage(ctx, update.Message)
	}
}

func (p *Poller) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	metrics.RecordUserMessage("command")

	text := withMentionTokens(message.Text, message.Entities)

	command := &models.Command{
		Type:      getCommandType("/" + message.Command()),
		ChatID:    message.Chat.ID,
		UserID:    message.From.ID,
		Text:      text,
		Args:      commandArguments(text),
		Username:  message.From.UserName,
		IsPrivate: message.Chat.IsPrivate(),
	}

	p.logger.Info("Получена команда",
		"chat_id", command.ChatID,
		"user_id", command.UserID,
		"command", command.Type,
	)

	response, err := p.commands.ProcessCommand(ctx, command)
	if err != nil {
		p.logger.Error("Ошибка при обработке команды",
			"error", err,
			"chat_id", command.ChatID,
			"text", command.Text,
		)

		if response == "" {
			response = "Произошла ошибка при обработке вашего сообщения. Пожалуйста, попробуйте позже."
		}
	}

	if response == "" {
		return
	}

	if err := p.telegramClient.SendMessage(ctx, command.ChatID, response); err != nil {
		p.logger.Error("Ошибка при отправке ответа",
			"error", err,
			"chat_id", command.ChatID,
		)
	}
}

func (p *Poller) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	metrics.RecordUserMessage("callback")

	if query.From == nil {
		return
	}

	response, err := p.commands.ProcessCallback(ctx, query.From.ID, query.Data)
	if err != nil {
		p.logger.Error("Ошибка при обработке нажатия кнопки",
			"error", err,
			"user_id", query.From.ID,
			"data", query.Data,
		)

		response = "Не удалось выполнить действие."
	}

	if err := p.telegramClient.AnswerCallback(ctx, query.ID, response); err != nil {
		p.logger.Error("Ошибка при ответе на нажатие кнопки",
			"error", err,
			"callback_id", query.ID,
		)
	}
}

func (p *Poller) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	metrics.RecordUserMessage("message")

	if p.messages == nil {
		return
	}

	event := ToMessageEvent(message)
	if event.Text == "" && event.ThreadID == "" {
		return
	}

	fired := p.messages.OnMessage(ctx, event)
	if fired > 0 {
		p.logger.Info("Сообщение вызвало срабатывание напоминаний",
			"chat_id", message.Chat.ID,
			"fired", fired,
		)
	}
}

// ToMessageEvent переводит сообщение Telegram в событие платформы. Ответ на
// сообщение считается активностью в треде с идентификатором исходного сообщения.
func ToMessageEvent(message *tgbotapi.Message) models.MessageEvent {
	chatID := strconv.FormatInt(message.Chat.ID, 10)

	text := message.Text
	entities := message.Entities

	if text == "" {
		text = message.Caption
		entities = message.CaptionEntities
	}

	event := models.MessageEvent{
		ID:        strconv.Itoa(message.MessageID),
		ChannelID: chatID,
		Text:      text,
		PostedAt:  message.Time(),
	}

	if !message.Chat.IsPrivate() {
		event.GroupID = chatID
	}

	if message.From != nil {
		event.AuthorID = strconv.FormatInt(message.From.ID, 10)
		event.AuthorIsBot = message.From.IsBot
	}

	if message.ReplyToMessage != nil {
		event.ThreadID = strconv.Itoa(message.ReplyToMessage.MessageID)
	}

	for _, entity := range entities {
		if entity.Type == "text_mention" && entity.User != nil {
			event.Mentions = append(event.Mentions, strconv.FormatInt(entity.User.ID, 10))
		}
	}

	if message.Chat.UserName != "" {
		event.URL = fmt.Sprintf("https://t.me/%s/%d", message.Chat.UserName, message.MessageID)
	}

	return event
}

// withMentionTokens заменяет упоминания пользователей без username на токены
// вида <@id>. Смещения сущностей Telegram считаются в кодовых единицах UTF-16.
func withMentionTokens(text string, entities []tgbotapi.MessageEntity) string {
	encoded := utf16.Encode([]rune(text))

	var (
		result []uint16
		last   int
	)

	for _, entity := range entities {
		if entity.Type != "text_mention" || entity.User == nil {
			continue
		}

		end := entity.Offset + entity.Length
		if entity.Offset < last || end > len(encoded) {
			continue
		}

		result = append(result, encoded[last:entity.Offset]...)
		result = append(result, utf16.Encode([]rune(fmt.Sprintf("<@%d>", entity.User.ID)))...)
		last = end
	}

	if last == 0 {
		return text
	}

	result = append(result, encoded[last:]...)

	return string(utf16.Decode(result))
}

func commandArguments(text string) string {
	index := strings.IndexAny(text, " \n")
	if index < 0 {
		return ""
	}

	return strings.TrimSpace(text[index+1:])
}

func getCommandType(commandName string) models.CommandType {
	switch commandName {
	case "/start":
		return models.CommandStart
	case "/help":
		return models.CommandHelp
	case "/remind":
		return models.CommandRemind
	case "/at":
		return models.CommandAt
	case "/list":
		return models.CommandList
	case "/delete":
		return models.CommandDelete
	case "/complete":
		return models.CommandComplete
	case "/snooze":
		return models.CommandSnooze
	case "/stats":
		return models.CommandStats
	default:
		return models.CommandUnknown
	}
}

// BotCommands список команд для меню Telegram.
func BotCommands() []domain.BotCommand {
	return []domain.BotCommand{
		{Command: "start", Description: "Начать работу с ботом"},
		{Command: "help", Description: "Список команд"},
		{Command: "remind", Description: "Создать напоминание"},
		{Command: "at", Description: "Напоминание на дату и время"},
		{Command: "list", Description: "Ваши напоминания"},
		{Command: "delete", Description: "Удалить напоминание"},
		{Command: "complete", Description: "Отметить выполненным"},
		{Command: "snooze", Description: "Отложить напоминание"},
		{Command: "stats", Description: "Статистика"},
	}
}
