package mocks

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/central-university-dev/go-reminders/internal/bot/domain"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type TelegramClientAPI struct {
	mock.Mock
}

func (_m *TelegramClientAPI) SendMessage(ctx context.Context, chatID int64, text string) error {
	ret := _m.Called(ctx, chatID, text)

	return ret.Error(0)
}

func (_m *TelegramClientAPI) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	ret := _m.Called(ctx, channelID, notification)

	return ret.Error(0)
}

func (_m *TelegramClientAPI) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	ret := _m.Called(ctx, userID, notification)

	return ret.Error(0)
}

func (_m *TelegramClientAPI) AnswerCallback(ctx context.Context, callbackID, text string) error {
	ret := _m.Called(ctx, callbackID, text)

	return ret.Error(0)
}

func (_m *TelegramClientAPI) SetMyCommands(ctx context.Context, commands []domain.BotCommand) error {
	ret := _m.Called(ctx, commands)

	return ret.Error(0)
}

func (_m *TelegramClientAPI) GetBot() *tgbotapi.BotAPI {
	ret := _m.Called()

	var r0 *tgbotapi.BotAPI
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*tgbotapi.BotAPI)
	}

	return r0
}

func NewTelegramClientAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *TelegramClientAPI {
	m := &TelegramClientAPI{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
