package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type Sender struct {
	mock.Mock
}

func (_m *Sender) SendToChannel(ctx context.Context, channelID string, notification *models.Notification) error {
	ret := _m.Called(ctx, channelID, notification)

	if rf, ok := ret.Get(0).(func(context.Context, string, *models.Notification) error); ok {
		return rf(ctx, channelID, notification)
	}

	return ret.Error(0)
}

func (_m *Sender) SendDirect(ctx context.Context, userID string, notification *models.Notification) error {
	ret := _m.Called(ctx, userID, notification)

	if rf, ok := ret.Get(0).(func(context.Context, string, *models.Notification) error); ok {
		return rf(ctx, userID, notification)
	}

	return ret.Error(0)
}

func NewSender(t interface {
	mock.TestingT
	Cleanup(func())
}) *Sender {
	m := &Sender{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
