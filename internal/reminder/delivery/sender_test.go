package delivery_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery/mocks"
)

func TestFallbackSender_PrimarySuccess(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	primaryMock := mocks.NewSender(t)
	secondaryMock := mocks.NewSender(t)

	sender := delivery.NewFallbackSender(primaryMock, secondaryMock, logger)
	notification := &models.Notification{ReminderID: "r-1", Body: "Pause"}

	primaryMock.On("SendToChannel", mock.Anything, "C1", notification).Return(nil)

	// Act
	err := sender.SendToChannel(context.Background(), "C1", notification)

	// Assert
	require.NoError(t, err)
	secondaryMock.AssertNotCalled(t, "SendToChannel", mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackSender_PrimaryFailsSecondarySuccess(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	primaryMock := mocks.NewSender(t)
	secondaryMock := mocks.NewSender(t)

	sender := delivery.NewFallbackSender(primaryMock, secondaryMock, logger)
	notification := &models.Notification{ReminderID: "r-1", Body: "Pause"}

	primaryMock.On("SendDirect", mock.Anything, "U1", notification).Return(errors.New("primary transport failed"))
	secondaryMock.On("SendDirect", mock.Anything, "U1", notification).Return(nil)

	// Act
	err := sender.SendDirect(context.Background(), "U1", notification)

	// Assert
	require.NoError(t, err)
}

func TestFallbackSender_BothFail(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	primaryMock := mocks.NewSender(t)
	secondaryMock := mocks.NewSender(t)

	sender := delivery.NewFallbackSender(primaryMock, secondaryMock, logger)
	notification := &models.Notification{ReminderID: "r-1", Body: "Pause"}

	primaryError := errors.New("primary transport failed")
	secondaryError := errors.New("secondary transport failed")

	primaryMock.On("SendToChannel", mock.Anything, "C1", notification).Return(primaryError)
	secondaryMock.On("SendToChannel", mock.Anything, "C1", notification).Return(secondaryError)

	// Act
	err := sender.SendToChannel(context.Background(), "C1", notification)

	// Assert
	require.Error(t, err)
	assert.Equal(t, primaryError, err)
}
