package tracing

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// ContextKey represents keys used for context values
type ContextKey string

const (
	// BatchIDKey is the context key for ingest batch ids
	BatchIDKey ContextKey = "batch_id"
	// StartTimeKey is the context key for batch start time
	StartTimeKey ContextKey = "start_time"
)

// GenerateBatchID returns a sortable unique id for one ingest batch.
func GenerateBatchID() string {
	return ulid.Make().String()
}

func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

func GetBatchID(ctx context.Context) string {
	if id, ok := ctx.Value(BatchIDKey).(string); ok {
		return id
	}
	return ""
}

// WithBatch tags ctx with a fresh batch id and start time.
func WithBatch(ctx context.Context) context.Context {
	ctx = WithBatchID(ctx, GenerateBatchID())
	return context.WithValue(ctx, StartTimeKey, time.Now())
}

// Duration is the time elapsed since WithBatch, zero when ctx was not tagged.
func Duration(ctx context.Context) time.Duration {
	start, ok := ctx.Value(StartTimeKey).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
