// Package breaker configures the circuit breakers that guard calls to
// external providers (language model, geocoding).
package breaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

const (
	halfOpenRequests = 3
	resetInterval    = 60 * time.Second
	openTimeout      = 30 * time.Second

	maxConsecutiveFailures = 5
	minRequests            = 10
	failureRatio           = 0.6
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Settings returns the breaker settings for name. Errors for which transient
// returns false (bad requests, auth failures) are passed through without
// counting against the provider.
func Settings(name string, transient func(error) bool, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenRequests,
		Interval:    resetInterval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > maxConsecutiveFailures ||
				(counts.Requests >= minRequests && ratio >= failureRatio)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (transient != nil && !transient(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
}

// New creates a circuit breaker with Settings.
func New(name string, transient func(error) bool, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(Settings(name, transient, logger))
}

// Execute runs fn through cb and returns its typed result.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// IsOpen reports whether err is a rejection by an open or saturated
// half-open breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
