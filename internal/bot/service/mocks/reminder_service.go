package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type ReminderService struct {
	mock.Mock
}

func (_m *ReminderService) CreateFromText(
	ctx context.Context,
	ownerID, groupID, channelID, triggerText, message, timezone string,
) (models.Reminder, error) {
	ret := _m.Called(ctx, ownerID, groupID, channelID, triggerText, message, timezone)

	var r0 models.Reminder
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, string, string, string) models.Reminder); ok {
		r0 = rf(ctx, ownerID, groupID, channelID, triggerText, message, timezone)
	} else {
		r0 = ret.Get(0).(models.Reminder)
	}

	return r0, ret.Error(1)
}

func (_m *ReminderService) CreateAt(
	ctx context.Context,
	ownerID, groupID, channelID string,
	local models.LocalDateTime,
	timezone string,
	recurrence models.Recurrence,
	message string,
) (models.Reminder, error) {
	ret := _m.Called(ctx, ownerID, groupID, channelID, local, timezone, recurrence, message)

	return ret.Get(0).(models.Reminder), ret.Error(1)
}

func (_m *ReminderService) DeleteReminder(ctx context.Context, ownerID, id string) (bool, error) {
	ret := _m.Called(ctx, ownerID, id)

	return ret.Bool(0), ret.Error(1)
}

func (_m *ReminderService) ListReminders(ownerID string) []models.Reminder {
	ret := _m.Called(ownerID)

	var r0 []models.Reminder
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Reminder)
	}

	return r0
}

func (_m *ReminderService) GetStats() models.Stats {
	ret := _m.Called()

	return ret.Get(0).(models.Stats)
}

func (_m *ReminderService) Complete(ctx context.Context, ownerID, id string) error {
	ret := _m.Called(ctx, ownerID, id)

	return ret.Error(0)
}

func (_m *ReminderService) Snooze(ctx context.Context, ownerID, id string) (models.Reminder, error) {
	ret := _m.Called(ctx, ownerID, id)

	return ret.Get(0).(models.Reminder), ret.Error(1)
}

func NewReminderService(t interface {
	mock.TestingT
	Cleanup(func())
}) *ReminderService {
	m := &ReminderService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
