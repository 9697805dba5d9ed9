package logging

import (
	"log/slog"
)

// Logger is the minimal level-based logging interface accepted by components
// that should not depend on slog directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// SlogAdapter adapts an slog.Logger to the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...interface{}) {
	a.logger.Debug(msg, args...)
}

func (a *SlogAdapter) Info(msg string, args ...interface{}) {
	a.logger.Info(msg, args...)
}

func (a *SlogAdapter) Warn(msg string, args ...interface{}) {
	a.logger.Warn(msg, args...)
}

func (a *SlogAdapter) Error(msg string, args ...interface{}) {
	a.logger.Error(msg, args...)
}

// Logger returns the underlying slog.Logger.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}

// CronLogger adapts a Logger to the logging interface expected by the cron
// scheduler (Info with key/values, Error with an error first).
type CronLogger struct {
	Logger Logger
}

// Info logs scheduler progress at debug level; cron is chatty.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Logger.Debug("cron: "+msg, keysAndValues...)
}

// Error logs a scheduler error.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{KeyError, err}, keysAndValues...)
	c.Logger.Error("cron: "+msg, args...)
}
