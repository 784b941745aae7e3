// Package resilience wraps calls to remote retrieval services in circuit breakers.
package resilience

import (
	"errors"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrOpen is returned when a breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker trips after MaxFailures consecutive failures and stays open for OpenTimeout.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns a breaker named name. A nil logger disables state-change logging.
func NewBreaker(name string, cfg config.BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.OpenTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Call runs fn through b. Rejected calls return an error wrapping ErrOpen.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errors.Join(ErrOpen, err)
		}
		return zero, err
	}
	return out.(T), nil
}
