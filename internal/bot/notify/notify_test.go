package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-reminders/internal/bot/notify"
	"github.com/central-university-dev/go-reminders/internal/config"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery"
	"github.com/central-university-dev/go-reminders/internal/reminder/delivery/mocks"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleNotification() *models.Notification {
	return &models.Notification{
		ReminderID: "r-1",
		OwnerID:    "U1",
		Kind:       models.KindTimer,
		Title:      "⏰ Напоминание",
		Body:       "Pause",
		Footer:     "Напоминание #r-1 | Сработало 1x",
		FiredAt:    time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func gatewayConfig() *config.Config {
	return &config.Config{
		HTTPRequestTimeout:         2 * time.Second,
		RetryCount:                 0,
		RetryBackoff:               10 * time.Millisecond,
		RetryableStatusCodes:       []int{503},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     100,
		CBFailureRateThreshold:     100,
		CBPermittedCallsInHalfOpen: 10,
		CBWaitDurationInOpenState:  time.Second,
	}
}

func TestKafkaSender_PublishesTargetAndNotification(t *testing.T) {
	// Arrange
	writer := &fakeWriter{}
	sender := notify.NewKafkaSenderWithWriter(writer, "reminder-notifications", discardLogger())
	notification := sampleNotification()

	// Act
	errChannel := sender.SendToChannel(context.Background(), "C1", notification)
	errDirect := sender.SendDirect(context.Background(), "U1", notification)

	// Assert
	require.NoError(t, errChannel)
	require.NoError(t, errDirect)
	require.Len(t, writer.messages, 2)

	var channelMsg, directMsg notify.NotificationMessage

	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &channelMsg))
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &directMsg))

	assert.Equal(t, "r-1", string(writer.messages[0].Key))
	assert.Equal(t, notify.TargetChannel, channelMsg.Target)
	assert.Equal(t, "C1", channelMsg.TargetID)
	assert.Equal(t, notify.TargetDirect, directMsg.Target)
	assert.Equal(t, "U1", directMsg.TargetID)
	assert.Equal(t, "Pause", channelMsg.Notification.Body)
	assert.Equal(t, notification.Text(), channelMsg.Text)

	require.NoError(t, sender.Close())
	assert.True(t, writer.closed)
}

func TestKafkaSender_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	sender := notify.NewKafkaSenderWithWriter(writer, "reminder-notifications", discardLogger())

	err := sender.SendToChannel(context.Background(), "C1", sampleNotification())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestHTTPSender_PostsToGateway(t *testing.T) {
	// Arrange
	var (
		mu    sync.Mutex
		paths []string
		body  map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		paths = append(paths, r.Method+" "+r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := notify.NewHTTPSender(server.URL, gatewayConfig(), discardLogger())

	// Act
	errChannel := sender.SendToChannel(context.Background(), "C1", sampleNotification())
	errDirect := sender.SendDirect(context.Background(), "U1", sampleNotification())

	// Assert
	require.NoError(t, errChannel)
	require.NoError(t, errDirect)
	assert.Equal(t, []string{"POST /channels/C1/messages", "POST /users/U1/messages"}, paths)
	assert.Contains(t, body["text"], "Pause")
}

func TestHTTPSender_RejectedByGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sender := notify.NewHTTPSender(server.URL, gatewayConfig(), discardLogger())

	err := sender.SendToChannel(context.Background(), "C1", sampleNotification())

	var httpErr *domainerrors.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestSenderFactory_CreateSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		telegram bool
		check    func(t *testing.T, sender delivery.Sender, err error)
	}{
		{
			name:     "telegram primary",
			cfg:      &config.Config{MessageTransport: config.TransportTelegram},
			telegram: true,
			check: func(t *testing.T, sender delivery.Sender, err error) {
				require.NoError(t, err)
				assert.IsType(t, &mocks.Sender{}, sender)
			},
		},
		{
			name: "telegram without client",
			cfg:  &config.Config{MessageTransport: config.TransportTelegram},
			check: func(t *testing.T, _ delivery.Sender, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "http primary",
			cfg:  &config.Config{MessageTransport: "http", GatewayBaseURL: "http://localhost:1"},
			check: func(t *testing.T, sender delivery.Sender, err error) {
				require.NoError(t, err)
				assert.IsType(t, &notify.HTTPSender{}, sender)
			},
		},
		{
			name: "kafka primary",
			cfg:  &config.Config{MessageTransport: config.TransportKafka, KafkaBrokers: "localhost:9092"},
			check: func(t *testing.T, sender delivery.Sender, err error) {
				require.NoError(t, err)
				assert.IsType(t, &notify.KafkaSender{}, sender)
			},
		},
		{
			name: "telegram with kafka fallback",
			cfg: &config.Config{
				MessageTransport:  config.TransportTelegram,
				FallbackEnabled:   true,
				FallbackTransport: config.TransportKafka,
				KafkaBrokers:      "localhost:9092",
			},
			telegram: true,
			check: func(t *testing.T, sender delivery.Sender, err error) {
				require.NoError(t, err)
				assert.IsType(t, &delivery.FallbackSender{}, sender)
			},
		},
		{
			name: "fallback equal to primary is ignored",
			cfg: &config.Config{
				MessageTransport:  config.TransportHTTP,
				FallbackEnabled:   true,
				FallbackTransport: "http",
			},
			check: func(t *testing.T, sender delivery.Sender, err error) {
				require.NoError(t, err)
				assert.IsType(t, &notify.HTTPSender{}, sender)
			},
		},
		{
			name: "unknown transport",
			cfg:  &config.Config{MessageTransport: "PIGEON"},
			check: func(t *testing.T, _ delivery.Sender, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "PIGEON")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var telegram delivery.Sender
			if tt.telegram {
				telegram = mocks.NewSender(t)
			}

			factory := notify.NewSenderFactory(tt.cfg, telegram, discardLogger())
			t.Cleanup(func() { _ = factory.Close() })

			sender, err := factory.CreateSender()
			tt.check(t, sender, err)
		})
	}
}

func TestFallbackThroughKafka(t *testing.T) {
	// Arrange
	primary := mocks.NewSender(t)
	writer := &fakeWriter{}
	secondary := notify.NewKafkaSenderWithWriter(writer, "reminder-notifications", discardLogger())
	sender := delivery.NewFallbackSender(primary, secondary, discardLogger())

	primary.On("SendDirect", mock.Anything, "U1", mock.Anything).Return(errors.New("telegram down"))

	// Act
	err := sender.SendDirect(context.Background(), "U1", sampleNotification())

	// Assert
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
}
