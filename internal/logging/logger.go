package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *SafeLogger
)

// SafeLogger wraps a zap.Logger so that logging calls are safe even when
// the logger has not been initialized (e.g. in unit tests).
type SafeLogger struct {
	logger *zap.Logger
}

// NewSafeLogger wraps an existing zap logger
func NewSafeLogger(l *zap.Logger) *SafeLogger {
	return &SafeLogger{logger: l}
}

// InitLogger initializes the global logger
func InitLogger() error {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logLevel)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.Fields(
			zap.String("service", "app-otp"),
			zap.String("version", "v1"),
		),
	)
	if err != nil {
		return err
	}

	Logger = &SafeLogger{logger: logger}
	return nil
}

func (s *SafeLogger) base() *zap.Logger {
	if s == nil || s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

// With returns a logger with the given fields attached
func (s *SafeLogger) With(fields ...zap.Field) *SafeLogger {
	return &SafeLogger{logger: s.base().With(fields...)}
}

// Debug logs a message at debug level
func (s *SafeLogger) Debug(msg string, fields ...zap.Field) {
	s.base().Debug(msg, fields...)
}

// Info logs a message at info level
func (s *SafeLogger) Info(msg string, fields ...zap.Field) {
	s.base().Info(msg, fields...)
}

// Warn logs a message at warn level
func (s *SafeLogger) Warn(msg string, fields ...zap.Field) {
	s.base().Warn(msg, fields...)
}

// Error logs a message at error level
func (s *SafeLogger) Error(msg string, fields ...zap.Field) {
	s.base().Error(msg, fields...)
}

// Fatal logs a message at fatal level and exits
func (s *SafeLogger) Fatal(msg string, fields ...zap.Field) {
	s.base().Fatal(msg, fields...)
}
