package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
)

type recordingProcessor struct {
	mu      sync.Mutex
	batches [][]Frame
	got     chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{got: make(chan struct{}, 16)}
}

func (r *recordingProcessor) ProcessBatch(_ context.Context, frames []Frame) []Result {
	r.mu.Lock()
	r.batches = append(r.batches, frames)
	r.mu.Unlock()
	select {
	case r.got <- struct{}{}:
	default:
	}
	return make([]Result, len(frames))
}

func (r *recordingProcessor) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func sampleBatch() Batch {
	return Batch{Frames: []Frame{{
		Origin: models.NewSwarmOrigin(models.SwarmOrigin{PublicKey: "05aa", Namespace: models.NamespaceDefault, ServerHash: "h"}),
		Data:   []byte{1, 2, 3},
	}}}
}

func TestFeedClient_ReceivesAndReconnects(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		connections++
		mu.Unlock()

		payload, _ := json.Marshal(sampleBatch())
		_ = conn.Write(r.Context(), websocket.MessageText, []byte("not json"))
		_ = conn.Write(r.Context(), websocket.MessageText, payload)
		_ = conn.Close(websocket.StatusGoingAway, "restart")
	}))
	defer srv.Close()

	proc := newRecordingProcessor()
	client := NewFeedClient(models.FeedConfig{
		URL:              "ws" + strings.TrimPrefix(srv.URL, "http"),
		BackoffInitialMs: 10,
		BackoffMaxSec:    1,
	}, proc, metrics.New(prometheus.NewRegistry()), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	proc.wait(t)
	proc.wait(t)
	cancel()
	require.NoError(t, <-done)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	require.GreaterOrEqual(t, len(proc.batches), 2)
	assert.Len(t, proc.batches[0], 1)
	assert.Equal(t, []byte{1, 2, 3}, proc.batches[0][0].Data)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, connections, 2)
	assert.False(t, client.IsConnected())
}

func TestFeedClient_StopsWhileDialFails(t *testing.T) {
	client := NewFeedClient(models.FeedConfig{URL: "ws://127.0.0.1:1/feed", BackoffInitialMs: 5, BackoffMaxSec: 1},
		newRecordingProcessor(), nil, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, client.Run(ctx))
}
