package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an interface for logging
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// ZeroLogger implements Logger using zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

// Option represents an option for configuring the logger
type Option func(*ZeroLogger)

// WithLevel sets the minimum log level
func WithLevel(level string) Option {
	return func(l *ZeroLogger) {
		switch level {
		case "debug":
			l.logger = l.logger.Level(zerolog.DebugLevel)
		case "info":
			l.logger = l.logger.Level(zerolog.InfoLevel)
		case "warn":
			l.logger = l.logger.Level(zerolog.WarnLevel)
		case "error":
			l.logger = l.logger.Level(zerolog.ErrorLevel)
		default:
			l.logger = l.logger.Level(zerolog.InfoLevel)
		}
	}
}

// New creates a new ZeroLogger
func New(options ...Option) *ZeroLogger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := &ZeroLogger{logger: zerolog.New(output).With().Timestamp().Logger()}

	for _, option := range options {
		option(logger)
	}

	return logger
}

// emit adds request-scoped context and the caller's fields to the event
func emit(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if requestID, ok := GetRequestID(ctx); ok {
		event = event.Str("request_id", requestID)
	}

	for k, v := range fields {
		event = event.Interface(k, v)
	}

	event.Msg(msg)
}

// Info logs an info message
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Error(), msg, fields)
}

// Debug logs a debug message
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Debug(), msg, fields)
}
