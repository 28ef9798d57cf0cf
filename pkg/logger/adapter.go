package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter pairs the general console logger with the optional
// categorized file loggers, so callers never need to check for nil
type LoggerAdapter struct {
	general     *zap.Logger
	multiLogger *MultiLogger
}

// NewLoggerAdapter creates a new logger adapter. multiLogger may be nil.
func NewLoggerAdapter(general *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	if general == nil {
		general = zap.NewNop()
	}
	return &LoggerAdapter{
		general:     general,
		multiLogger: multiLogger,
	}
}

// NewSingleLoggerAdapter creates an adapter that sends everything to one logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return NewLoggerAdapter(logger, nil)
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.general
}

// Download returns the download event logger
func (la *LoggerAdapter) Download() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Download()
	}
	return la.general
}

// LogDownloadEvent logs a download lifecycle event to the general log and,
// when configured, to the download category file
func (la *LoggerAdapter) LogDownloadEvent(event string, fields ...zap.Field) {
	la.general.Info(event, fields...)
	if la.multiLogger != nil {
		la.multiLogger.LogDownloadEvent(event, fields...)
	}
}

// LogError logs an error to the general log and the error category file
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	la.general.Error(msg, fields...)
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		if err := la.multiLogger.Sync(); err != nil {
			return err
		}
	}
	return la.general.Sync()
}

// GetMultiLogger returns the underlying multi-logger (if available)
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
