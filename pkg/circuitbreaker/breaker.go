// Package circuitbreaker guards outbound dependencies with sony/gobreaker.
package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/pkg/logger"
	"github.com/swcolombo/waitlist-api/pkg/metrics"
)

const (
	minRequestsToTrip = 5
	tripFailureRatio  = 0.6
	halfOpenProbes    = 1
	countsInterval    = time.Minute
	openCooldown      = 30 * time.Second
)

// ErrUnavailable is returned instead of gobreaker's own errors when the
// breaker refuses a call
var ErrUnavailable = errors.New("service temporarily unavailable")

// Settings returns the breaker settings used for every outbound dependency.
// isSuccessful decides which errors still count as a healthy dependency;
// nil means only a nil error does.
func Settings(name string, isSuccessful func(error) bool) gobreaker.Settings {
	return gobreaker.Settings{
		Name:         name,
		MaxRequests:  halfOpenProbes,
		Interval:     countsInterval,
		Timeout:      openCooldown,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequestsToTrip {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= tripFailureRatio
		},
		OnStateChange: onStateChange,
	}
}

// New creates a breaker with Settings
func New(name string, isSuccessful func(error) bool) *gobreaker.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(Settings(name, isSuccessful))
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return cb
}

func onStateChange(name string, from, to gobreaker.State) {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))

	fields := []zap.Field{
		zap.String("breaker", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	}
	if to == gobreaker.StateOpen {
		logger.Warn("Circuit breaker opened", fields...)
		return
	}
	logger.Info("Circuit breaker state changed", fields...)
}

// Execute runs fn through cb. When the breaker refuses the call the error
// wraps ErrUnavailable. The call's own result is returned even with an error.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.Execute(func() (interface{}, error) {
		var callErr error
		out, callErr = fn()
		return nil, callErr
	})
	if IsRejected(err) {
		return out, fmt.Errorf("%w: breaker %q: %w", ErrUnavailable, cb.Name(), err)
	}
	return out, err
}

// IsOpen checks if the circuit breaker is in open state
func IsOpen(cb *gobreaker.CircuitBreaker) bool {
	return cb.State() == gobreaker.StateOpen
}

// IsRejected reports whether err came from the breaker rather than the call
func IsRejected(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}
