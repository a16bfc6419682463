package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a categorized error type
type ErrorCode string

const (
	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrCodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// Receive pipeline rejections
	ErrCodeInvalidMessage               ErrorCode = "INVALID_MESSAGE"
	ErrCodeInvalidConfigMessageHandling ErrorCode = "INVALID_CONFIG_MESSAGE_HANDLING"
	ErrCodeDeprecatedMessage            ErrorCode = "DEPRECATED_MESSAGE"
	ErrCodeSenderBlocked                ErrorCode = "SENDER_BLOCKED"
	ErrCodeSelfSend                     ErrorCode = "SELF_SEND"
	ErrCodeOutdatedMessage              ErrorCode = "OUTDATED_MESSAGE"
	ErrCodeUnknownMessage               ErrorCode = "UNKNOWN_MESSAGE"
	ErrCodeNoThread                     ErrorCode = "NO_THREAD"
	ErrCodeObjectNotFound               ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeInvalidSender                ErrorCode = "INVALID_SENDER"
	ErrCodeDecryptionFailed             ErrorCode = "DECRYPTION_FAILED"

	// Transport errors
	ErrCodeFeedConnection     ErrorCode = "FEED_CONNECTION"
	ErrCodeAttachmentDownload ErrorCode = "ATTACHMENT_DOWNLOAD"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
)

// AppError represents a structured application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapRetryable wraps an error and marks it as retryable
func WrapRetryable(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsRetryable checks if any AppError in the chain is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetCode extracts the outermost error code from an error chain
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsCode reports whether any AppError in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
