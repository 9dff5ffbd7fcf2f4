// Package circuitbreaker wraps sony/gobreaker with application defaults.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shivam-V8/defi-agent/internal/apperror"
)

// Config holds circuit breaker tuning parameters.
type Config struct {
	Name        string
	MaxRequests uint32        // requests allowed through while half-open
	Interval    time.Duration // cyclic period for clearing counts while closed
	Timeout     time.Duration // how long the breaker stays open
	MinRequests uint32        // minimum requests before the failure ratio applies
	FailureRate float64       // failure ratio that trips the breaker
}

// DefaultConfig returns conservative defaults for an upstream dependency.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 5,
		FailureRate: 0.6,
	}
}

// CircuitBreaker guards calls to a single upstream dependency.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker from config.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRate
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker, translating breaker states into
// application errors so callers can distinguish "upstream broken" from
// "breaker refusing traffic".
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := c.cb.Execute(fn)
	switch err {
	case gobreaker.ErrOpenState:
		return result, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithContext(c.cb.Name()),
			apperror.WithCause(err))
	case gobreaker.ErrTooManyRequests:
		return result, apperror.New(apperror.CodeCircuitHalfOpen,
			apperror.WithContext(c.cb.Name()),
			apperror.WithCause(err))
	default:
		return result, err
	}
}

// State returns the current breaker state string for health reporting.
func (c *CircuitBreaker[T]) State() string {
	return c.cb.State().String()
}
