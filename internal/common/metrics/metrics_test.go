package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
)

const (
	statusSuccess = "success"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Arrange
	service := "test-service"
	method := "GET"
	endpoint := "/test"

	// Act
	metrics.RecordHTTPRequest(service, method, endpoint, 200, 100*time.Millisecond)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, statusSuccess))
	assert.Equal(t, float64(1), counterValue)
}

func TestRecordHTTPRequestError(t *testing.T) {
	// Arrange
	service := "test-service"
	method := "POST"
	endpoint := "/error"

	// Act
	metrics.RecordHTTPRequest(service, method, endpoint, 500, 50*time.Millisecond)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, "error"))
	assert.Equal(t, float64(1), counterValue)
}

func TestRecordUserMessage(t *testing.T) {
	// Arrange
	messageType := "command_test"
	initial := testutil.ToFloat64(metrics.UserMessagesTotal.WithLabelValues(messageType))

	// Act
	metrics.RecordUserMessage(messageType)

	// Assert
	assert.Equal(t, initial+1, testutil.ToFloat64(metrics.UserMessagesTotal.WithLabelValues(messageType)))
}

func TestRecordSweep(t *testing.T) {
	// Act
	metrics.RecordSweep(5*time.Millisecond, 42)

	// Assert
	assert.Equal(t, float64(42), testutil.ToFloat64(metrics.ArmedTimers))
}

func TestRecordDelivery(t *testing.T) {
	// Arrange
	initial := testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("fallback"))

	// Act
	metrics.RecordDelivery("fallback", 20*time.Millisecond)

	// Assert
	assert.Equal(t, initial+1, testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("fallback")))
}

func TestRecordDatabaseQuery(t *testing.T) {
	// Arrange
	operation := "persist_test"

	// Act
	metrics.RecordDatabaseQuery(operation, statusSuccess, 10*time.Millisecond)

	// Assert
	counterValue := testutil.ToFloat64(metrics.DatabaseQueriesTotal.WithLabelValues(operation, statusSuccess))
	assert.Equal(t, float64(1), counterValue)
}

func TestMetricsExist(t *testing.T) {
	// Arrange
	metrics.RecordReminderCreated("timer")
	metrics.RecordTimerFired("none")
	metrics.RecordEvent("message")
	metrics.RecordMatch("keyword")
	metrics.StaleAlarms.Add(0)
	metrics.FirePanics.Add(0)

	// Act
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	// Assert
	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	expectedMetrics := []string{
		"reminders_bot_reminders_created_total",
		"reminders_scheduler_armed_timers",
		"reminders_scheduler_timers_fired_total",
		"reminders_scheduler_stale_alarms_total",
		"reminders_scheduler_fire_panics_total",
		"reminders_matcher_events_processed_total",
		"reminders_matcher_matches_total",
	}

	for _, metricName := range expectedMetrics {
		assert.True(t, metricNames[metricName], "Метрика %s должна быть зарегистрирована", metricName)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]metrics.HealthCheck
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no checks",
			checks:         nil,
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
		},
		{
			name: "all healthy",
			checks: map[string]metrics.HealthCheck{
				"store": func(context.Context) error { return nil },
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
		},
		{
			name: "one failing",
			checks: map[string]metrics.HealthCheck{
				"store":    func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "DEGRADED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := metrics.NewHTTPMiddleware("test").Middleware(metrics.HealthHandler(tt.checks))
			recorder := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			// Assert
			assert.Equal(t, tt.expectedStatus, recorder.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body["status"])
		})
	}
}
