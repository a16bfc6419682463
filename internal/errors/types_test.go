package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "error without cause",
			err:      SelfSend(),
			expected: "SELF_SEND: message sent by current user",
		},
		{
			name:     "error with cause",
			err:      DecryptionFailed("session", errors.New("bad mac")),
			expected: "DECRYPTION_FAILED: session decryption failed: bad mac",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGetCode_UnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("handle: %w", OutdatedMessage("group kicked"))

	assert.Equal(t, ErrCodeOutdatedMessage, GetCode(wrapped))
	assert.Equal(t, ErrCodeInternalError, GetCode(errors.New("plain")))
}

func TestIsCode(t *testing.T) {
	inner := ObjectNotFound("interaction")
	outer := Wrap(inner, ErrCodeDatabaseQuery, "reaction lookup")

	assert.True(t, IsCode(outer, ErrCodeDatabaseQuery))
	assert.True(t, IsCode(outer, ErrCodeObjectNotFound))
	assert.False(t, IsCode(outer, ErrCodeSelfSend))
	assert.False(t, IsCode(nil, ErrCodeSelfSend))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapRetryable(errors.New("database is locked"), ErrCodeDatabaseQuery, "insert")))
	assert.True(t, IsRetryable(fmt.Errorf("ctx: %w", WrapRetryable(errors.New("x"), ErrCodeDatabaseQuery, "q"))))
	assert.False(t, IsRetryable(InvalidMessage("bad envelope")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := DeprecatedMessage("legacyClosedGroup")

	assert.Equal(t, "legacyClosedGroup", err.Context["namespace"])
	assert.Equal(t, err, err.WithContext("server_hash", "abc"))
	assert.Len(t, err.Context, 2)
}
