package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "reminders"

	BotSubsystem       = "bot"
	SchedulerSubsystem = "scheduler"
	MatcherSubsystem   = "matcher"
	DeliverySubsystem  = "delivery"
)

// Общие метрики для всех сервисов.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of outgoing HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Бот метрики.
var (
	UserMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "user_messages_total",
			Help:      "Total number of user messages processed",
		},
		[]string{"message_type"},
	)

	RemindersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "reminders_created_total",
			Help:      "Total number of reminders created by kind",
		},
		[]string{"kind"},
	)
)

// Метрики планировщика.
var (
	ArmedTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "armed_timers",
			Help:      "Number of currently armed reminder timers",
		},
	)

	TimersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "timers_fired_total",
			Help:      "Total number of fired timer reminders by recurrence",
		},
		[]string{"recurrence"},
	)

	StaleAlarms = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "stale_alarms_total",
			Help:      "Total number of alarms completed without notification because they were too late",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Reconciliation sweep duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	FirePanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "fire_panics_total",
			Help:      "Total number of recovered panics while firing a reminder",
		},
	)
)

// Метрики сопоставления событий.
var (
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MatcherSubsystem,
			Name:      "events_processed_total",
			Help:      "Total number of platform events evaluated",
		},
		[]string{"event_type"},
	)

	ContextualMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MatcherSubsystem,
			Name:      "matches_total",
			Help:      "Total number of contextual reminders matched by kind",
		},
		[]string{"kind"},
	)
)

// Метрики доставки.
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "deliveries_total",
			Help:      "Total number of reminder deliveries by outcome",
		},
		[]string{"status"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "delivery_duration_seconds",
			Help:      "Reminder delivery duration in seconds including fallback",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordDatabaseQuery(operation, status string, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordUserMessage(messageType string) {
	UserMessagesTotal.WithLabelValues(messageType).Inc()
}

func RecordReminderCreated(kind string) {
	RemindersCreated.WithLabelValues(kind).Inc()
}

func RecordTimerFired(recurrence string) {
	TimersFired.WithLabelValues(recurrence).Inc()
}

func RecordSweep(duration time.Duration, armed int) {
	SweepDuration.Observe(duration.Seconds())
	ArmedTimers.Set(float64(armed))
}

func RecordEvent(eventType string) {
	EventsProcessed.WithLabelValues(eventType).Inc()
}

func RecordMatch(kind string) {
	ContextualMatches.WithLabelValues(kind).Inc()
}

func RecordDelivery(status string, duration time.Duration) {
	DeliveriesTotal.WithLabelValues(status).Inc()
	DeliveryDuration.Observe(duration.Seconds())
}
