package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter ограничивает частоту действий отдельно для каждого ключа,
// например для владельца напоминаний.
type KeyedLimiter struct {
	keys       map[string]*keyLimiter
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	expiration time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

func NewKeyedLimiter(requests int, window time.Duration, clk clock.Clock, logger *slog.Logger) *KeyedLimiter {
	return &KeyedLimiter{
		keys:       make(map[string]*keyLimiter),
		rate:       rate.Limit(float64(requests) / window.Seconds()),
		burst:      requests,
		expiration: time.Hour,
		clock:      clk,
		logger:     logger,
	}
}

// Allow расходует одно действие для ключа. Если лимит исчерпан, возвращает
// false и время до следующего разрешённого действия.
func (l *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	now := l.clock.Now()
	limiter := l.limiter(key, now)

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}

	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}

	reservation.CancelAt(now)

	l.logger.Warn("Превышен лимит запросов",
		"key", key,
		"retryAfter", delay.String(),
	)

	return false, delay
}

// Run периодически удаляет лимитеры ключей, не использовавшихся дольше часа.
func (l *KeyedLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (l *KeyedLimiter) Cleanup() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0

	for key, entry := range l.keys {
		if now.Sub(entry.lastSeen) > l.expiration {
			delete(l.keys, key)
			removed++
		}
	}

	return removed
}

func (l *KeyedLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.keys[key]
	if !exists {
		entry = &keyLimiter{
			limiter: rate.NewLimiter(l.rate, l.burst),
		}
		l.keys[key] = entry
	}

	entry.lastSeen = now

	return entry.limiter
}
