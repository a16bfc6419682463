package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	apperrors "swarmsync/internal/errors"
)

func TestRetryableDBOperationNoReturn_Success(t *testing.T) {
	callCount := 0
	err := retryableDBOperationNoReturn(context.Background(), func() error {
		callCount++
		return nil
	}, "test operation")

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryableDBOperationNoReturn_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := retryableDBOperationNoReturn(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("database is locked")
		}
		return nil
	}, "test operation")

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryableDBOperationNoReturn_PassesThroughOtherErrors(t *testing.T) {
	callCount := 0
	rejection := apperrors.SelfSend()

	err := retryableDBOperationNoReturn(context.Background(), func() error {
		callCount++
		return rejection
	}, "test operation")

	assert.Same(t, rejection, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryableDBOperationNoReturn_MaxAttemptsReached(t *testing.T) {
	callCount := 0
	err := retryableDBOperationNoReturn(context.Background(), func() error {
		callCount++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	}, "test operation")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, 3, callCount)
}

func TestRetryableDBOperationNoReturn_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	err := retryableDBOperationNoReturn(ctx, func() error {
		callCount++
		return nil
	}, "test operation")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, callCount)
}

func TestIsRetryableDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked string", errors.New("database is locked"), true},
		{"wrapped locked", fmt.Errorf("insert: %w", errors.New("database is locked")), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, false},
		{"canceled", context.Canceled, false},
		{"schema", errors.New("no such table: interactions"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableDBError(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}))
	assert.False(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}))
}
