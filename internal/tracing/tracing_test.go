package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"swarmsync/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestManager_DisabledIsNoop(t *testing.T) {
	m := NewManager(models.TracingConfig{Enabled: false}, "test", quietLogger())
	require.NoError(t, m.Initialize(context.Background()))
	assert.Nil(t, m.tracerProvider)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_StdoutLifecycle(t *testing.T) {
	m := NewManager(models.TracingConfig{Enabled: true, UseStdout: true, SampleRate: 1}, "test", quietLogger())
	require.NoError(t, m.Initialize(context.Background()))
	require.NotNil(t, m.tracerProvider)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestStartSpan_RecordSpanError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := StartSpan(context.Background(), "receive.handle", attribute.String("message_kind", "readReceipt"))
	assert.NotEmpty(t, TraceID(ctx))
	RecordSpanError(span, errors.New("boom"))
	RecordSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "receive.handle", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String("message_kind", "readReceipt"))
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestBatchContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetBatchID(ctx))
	assert.Zero(t, Duration(ctx))

	ctx = WithBatch(ctx)
	id := GetBatchID(ctx)
	assert.Len(t, id, 26)
	time.Sleep(time.Millisecond)
	assert.Positive(t, Duration(ctx))

	assert.NotEqual(t, id, GenerateBatchID())
}
