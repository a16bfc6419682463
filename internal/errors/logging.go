package errors

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with structured error logging
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new structured logger
func NewLogger() *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{Logger: logger}
}

// FromLogrus wraps an existing logger, keeping its formatter, level and output.
func FromLogrus(logger *logrus.Logger) *Logger {
	return &Logger{Logger: logger}
}

// LogError logs an error with structured context
func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields).Error(message)
}

// LogWarn logs a warning with structured context
func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields).Warn(message)
}

// LogRetryableError logs a retryable error at warn level, non-retryable at error level
func (l *Logger) LogRetryableError(err error, message string, fields ...logrus.Fields) {
	if IsRetryable(err) {
		l.LogWarn(err, message, fields...)
	} else {
		l.LogError(err, message, fields...)
	}
}

// WithError adds an error to subsequent log entries
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry(err, nil)
}

func (l *Logger) entry(err error, fields []logrus.Fields) *logrus.Entry {
	entry := l.Logger.WithError(err).WithFields(Fields(err))
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	return entry
}

// Fields returns the structured fields of the first AppError in err's chain.
func Fields(err error) logrus.Fields {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return logrus.Fields{}
	}
	fields := logrus.Fields{
		"error_code": appErr.Code,
		"retryable":  appErr.Retryable,
	}
	for k, v := range appErr.Context {
		fields[k] = v
	}
	return fields
}
