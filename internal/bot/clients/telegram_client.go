package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-reminders/internal/bot/domain"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

// CallbackData собирает данные кнопки уведомления в виде "ack:<id>".
func CallbackData(action models.ActionType, reminderID string) string {
	return string(action) + ":" + reminderID
}

type TelegramClient struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTelegramClient(token string, logger *slog.Logger) (*TelegramClient, error) {
	return NewTelegramClientWithEndpoint(token, tgbotapi.APIEndpoint, logger)
}

// NewTelegramClientWithEndpoint создаёт клиента для произвольного адреса Bot API
// в формате tgbotapi.APIEndpoint.
func NewTelegramClientWithEndpoint(token, endpoint string, logger *slog.Logger) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании Telegram клиента: %w", err)
	}

	logger.Info("Telegram клиент авторизован",
		"username", bot.Self.UserName,
	)

	return &TelegramClient{
		bot:    bot,
		logger: logger,
	}, nil
}

var _ domain.TelegramClientAPI = (*TelegramClient)(nil)

func (c *TelegramClient) SendMessage(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка при отправке сообщения: %w", err)
	}

	return nil
}

// SendToChannel публикует уведомление в чат; идентификатор канала это chat id Telegram.
func (c *TelegramClient) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("неверный идентификатор чата %q: %w", channelID, err)
	}

	return c.sendNotification(ctx, chatID, notification)
}

// SendDirect пишет пользователю лично: в Telegram chat id личного чата совпадает с id пользователя.
func (c *TelegramClient) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("неверный идентификатор пользователя %q: %w", userID, err)
	}

	return c.sendNotification(ctx, chatID, notification)
}

func (c *TelegramClient) sendNotification(_ context.Context, chatID int64, notification *models.Notification) error {
	msg := tgbotapi.NewMessage(chatID, notification.Text())

	if len(notification.Actions) > 0 {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(notification.Actions))
		for _, action := range notification.Actions {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
				action.Label,
				CallbackData(action.Type, notification.ReminderID),
			))
		}

		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Warn("Telegram не принял уведомление",
			"error", err,
			"chat_id", chatID,
			"reminderID", notification.ReminderID,
		)

		return fmt.Errorf("ошибка при отправке уведомления: %w", err)
	}

	return nil
}

func (c *TelegramClient) AnswerCallback(_ context.Context, callbackID, text string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("ошибка при ответе на нажатие кнопки: %w", err)
	}

	return nil
}

func (c *TelegramClient) SetMyCommands(_ context.Context, commands []domain.BotCommand) error {
	botAPICommands := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		botAPICommands = append(botAPICommands, tgbotapi.BotCommand{
			Command:     cmd.Command,
			Description: cmd.Description,
		})
	}

	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(botAPICommands...)); err != nil {
		return fmt.Errorf("ошибка при установке команд бота: %w", err)
	}

	return nil
}

func (c *TelegramClient) GetBot() *tgbotapi.BotAPI {
	return c.bot
}
