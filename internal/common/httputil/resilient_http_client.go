package httputil

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/config"
	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
)

type breakerState struct {
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *slog.Logger
	serviceName    string
}

// CreateResilientHTTPClient собирает resty клиент с повторами и circuit breaker
// поверх транспорта. Каждый ответ учитывается в метриках HTTP запросов.
func CreateResilientHTTPClient(cfg *config.Config, logger *slog.Logger, serviceName string) *resty.Client {
	client := resty.New()

	client.SetTimeout(cfg.HTTPRequestTimeout)

	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(cfg.RetryBackoff)
	client.SetRetryMaxWaitTime(cfg.RetryBackoff * 5)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, gobreaker.ErrOpenState)
		}

		for _, status := range cfg.RetryableStatusCodes {
			if r.StatusCode() == status {
				return true
			}
		}

		return false
	})

	settings := gobreaker.Settings{
		Name:        serviceName + "_circuit_breaker",
		MaxRequests: uint32(cfg.CBPermittedCallsInHalfOpen), //nolint:gosec // G115: Значение из конфига
		Interval:    time.Duration(cfg.CBSlidingWindowSize) * time.Second,
		Timeout:     cfg.CBWaitDurationInOpenState,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(cfg.CBMinimumRequiredCalls) && //nolint:gosec // G115: Значение из конфига
				failureRatio >= float64(cfg.CBFailureRateThreshold)/100.0
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("Состояние circuit breaker изменилось",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
		},
	}

	client.SetTransport(&CircuitBreakerTransport{
		state: &breakerState{
			circuitBreaker: gobreaker.NewCircuitBreaker(settings),
			logger:         logger,
			serviceName:    serviceName,
		},
		originalTransport: http.DefaultTransport,
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		metrics.RecordHTTPRequest(serviceName, resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time())

		if logger != nil && resp.Request.Attempt > 1 {
			logger.Info("Повторная попытка HTTP запроса",
				"service", serviceName,
				"url", resp.Request.URL,
				"attempt", resp.Request.Attempt,
				"status", resp.StatusCode(),
			)
		}

		return nil
	})

	return client
}

type CircuitBreakerTransport struct {
	state             *breakerState
	originalTransport http.RoundTripper
}

func (t *CircuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.state.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := t.originalTransport.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &domainerrors.HTTPError{StatusCode: resp.StatusCode}
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) && t.state.logger != nil {
			t.state.logger.Warn("Circuit breaker открыт",
				"service", t.state.serviceName,
				"url", req.URL.String(),
			)
		}

		return nil, err
	}

	return result.(*http.Response), nil
}
