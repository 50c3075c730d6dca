package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type Dispatcher struct {
	mock.Mock
}

func (_m *Dispatcher) Deliver(ctx context.Context, reminder models.Reminder, fireCtx models.FireContext) models.DeliveryResult {
	ret := _m.Called(ctx, reminder, fireCtx)

	if rf, ok := ret.Get(0).(func(context.Context, models.Reminder, models.FireContext) models.DeliveryResult); ok {
		return rf(ctx, reminder, fireCtx)
	}

	return ret.Get(0).(models.DeliveryResult)
}

func NewDispatcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *Dispatcher {
	m := &Dispatcher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
