package errors

import "fmt"

// Rejection constructors for the receive pipeline. None of these are retryable:
// redelivering the same bytes produces the same outcome.

func InvalidMessage(reason string) *AppError {
	return New(ErrCodeInvalidMessage, reason)
}

func InvalidMessageCause(err error, reason string) *AppError {
	return Wrap(err, ErrCodeInvalidMessage, reason)
}

func InvalidConfigMessageHandling() *AppError {
	return New(ErrCodeInvalidConfigMessageHandling, "config message reached the message pipeline")
}

func DeprecatedMessage(namespace string) *AppError {
	return New(ErrCodeDeprecatedMessage, "namespace no longer supported").
		WithContext("namespace", namespace)
}

func SenderBlocked() *AppError {
	return New(ErrCodeSenderBlocked, "sender is blocked")
}

func SelfSend() *AppError {
	return New(ErrCodeSelfSend, "message sent by current user")
}

func OutdatedMessage(reason string) *AppError {
	return New(ErrCodeOutdatedMessage, "message is outdated").WithContext("reason", reason)
}

func UnknownMessage(kind string) *AppError {
	return New(ErrCodeUnknownMessage, "no handler for message").WithContext("kind", kind)
}

func NoThread() *AppError {
	return New(ErrCodeNoThread, "thread does not exist")
}

func ObjectNotFound(object string) *AppError {
	return New(ErrCodeObjectNotFound, fmt.Sprintf("%s not found", object))
}

func InvalidSender(reason string) *AppError {
	return New(ErrCodeInvalidSender, reason)
}

func DecryptionFailed(protocol string, err error) *AppError {
	return Wrap(err, ErrCodeDecryptionFailed, fmt.Sprintf("%s decryption failed", protocol)).
		WithContext("protocol", protocol)
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key)
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation)
}
