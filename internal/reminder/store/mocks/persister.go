package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type Persister struct {
	mock.Mock
}

func (_m *Persister) Persist(ctx context.Context, reminder *models.Reminder) error {
	ret := _m.Called(ctx, reminder)

	if rf, ok := ret.Get(0).(func(context.Context, *models.Reminder) error); ok {
		return rf(ctx, reminder)
	}

	return ret.Error(0)
}

func (_m *Persister) Remove(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)

	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		return rf(ctx, id)
	}

	return ret.Error(0)
}

func NewPersister(t interface {
	mock.TestingT
	Cleanup(func())
}) *Persister {
	m := &Persister{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

type Canceler struct {
	mock.Mock
}

func (_m *Canceler) Disarm(id string) {
	_m.Called(id)
}

func NewCanceler(t interface {
	mock.TestingT
	Cleanup(func())
}) *Canceler {
	m := &Canceler{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
