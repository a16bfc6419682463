package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()

	assert.NotNil(t, logger.Logger)
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "Logger should use JSON formatter")
}

func TestLogger_LogRetryableError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectedLevel string
		expectedCode  string
	}{
		{
			name:          "retryable logs at warn",
			err:           WrapRetryable(errors.New("database is locked"), ErrCodeDatabaseQuery, "insert interaction"),
			expectedLevel: `"level":"warning"`,
			expectedCode:  `"error_code":"DATABASE_QUERY"`,
		},
		{
			name:          "rejection logs at error",
			err:           OutdatedMessage("deleted before cutoff"),
			expectedLevel: `"level":"error"`,
			expectedCode:  `"error_code":"OUTDATED_MESSAGE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger()
			logger.SetOutput(&buf)

			logger.LogRetryableError(tt.err, "message dropped", logrus.Fields{"thread_id": "05ab"})

			out := buf.String()
			assert.Contains(t, out, tt.expectedLevel)
			assert.Contains(t, out, tt.expectedCode)
			assert.Contains(t, out, `"thread_id":"05ab"`)
			assert.Contains(t, out, `"msg":"message dropped"`)
		})
	}
}

func TestFields_PlainError(t *testing.T) {
	assert.Empty(t, Fields(errors.New("plain")))
	fields := Fields(UnknownMessage("visibleMessage"))
	assert.Equal(t, ErrCodeUnknownMessage, fields["error_code"])
	assert.Equal(t, "visibleMessage", fields["kind"])
}
