package domain

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type BotCommand struct {
	Command     string
	Description string
}

type TelegramClientAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string) error

	SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error

	SendDirect(ctx context.Context, userID string, notification *models.Notification) error

	AnswerCallback(ctx context.Context, callbackID, text string) error

	SetMyCommands(ctx context.Context, commands []BotCommand) error

	GetBot() *tgbotapi.BotAPI
}
