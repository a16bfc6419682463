package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/configcache"
	"swarmsync/internal/crypto"
	"swarmsync/internal/database"
	"swarmsync/internal/ingest"
	"swarmsync/internal/jobs"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/notify"
	"swarmsync/internal/receive"
)

// TestEnvironment wires the full receive stack against a file-backed
// database and an in-process delivery feed.
type TestEnvironment struct {
	t      *testing.T
	dbPath string
	logger *logrus.Logger

	Me        *crypto.Engine
	State     *configcache.State
	DB        *database.Database
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Alerts    *RecordingSink
	Processor *ingest.Processor

	feed    *httptest.Server
	batches chan ingest.Batch
}

// RecordingSink captures delivered alerts.
type RecordingSink struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (s *RecordingSink) Deliver(_ context.Context, a notify.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *RecordingSink) Alerts() []notify.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Alert(nil), s.alerts...)
}

func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	keys, err := crypto.GenerateUserKeys()
	require.NoError(t, err)

	env := &TestEnvironment{
		t:       t,
		dbPath:  filepath.Join(t.TempDir(), "swarmsync.db"),
		logger:  logger,
		Me:      crypto.NewEngine(keys),
		State:   configcache.NewState(),
		Alerts:  &RecordingSink{},
		batches: make(chan ingest.Batch, 16),
	}
	env.openStack()
	t.Cleanup(env.Cleanup)
	return env
}

func (env *TestEnvironment) openStack() {
	db, err := database.New(env.dbPath)
	require.NoError(env.t, err)

	env.DB = db
	env.Registry = prometheus.NewRegistry()
	env.Metrics = metrics.New(env.Registry)

	notifier := notify.New(env.Alerts, models.NotificationsConfig{RatePerSec: 100, Burst: 100, DedupeWindow: 64}, env.Metrics, false, env.logger)
	receiver := receive.New(receive.Dependencies{
		UserSessionID: env.Me.Keys().SessionID(),
		Crypto:        env.Me,
		Config:        env.State,
		ConfigMutator: env.State,
		Jobs:          jobs.NewScheduler(db, env.logger),
		Notifier:      notifier,
		Logger:        env.logger,
	})
	env.Processor = ingest.NewProcessor(receiver, db, env.Metrics, 2, false, env.logger)
}

// Restart closes the database and rebuilds the stack on the same file.
func (env *TestEnvironment) Restart() {
	require.NoError(env.t, env.DB.Close())
	env.openStack()
}

func (env *TestEnvironment) Cleanup() {
	if env.feed != nil {
		env.feed.Close()
		env.feed = nil
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
}

// StartFeed serves queued batches over a websocket and returns the dial URL.
func (env *TestEnvironment) StartFeed() string {
	env.feed = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.CloseNow() }()
		for {
			select {
			case <-r.Context().Done():
				return
			case batch := <-env.batches:
				data, err := json.Marshal(batch)
				if err != nil {
					return
				}
				if err := conn.Write(r.Context(), websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}))
	return "ws" + strings.TrimPrefix(env.feed.URL, "http")
}

func (env *TestEnvironment) Push(frames ...ingest.Frame) {
	env.batches <- ingest.Batch{Frames: frames}
}

// RunFeed runs a feed client until the test ends.
func (env *TestEnvironment) RunFeed(url string) *ingest.FeedClient {
	ctx, cancel := context.WithCancel(context.Background())
	client := ingest.NewFeedClient(models.FeedConfig{URL: url, BackoffInitialMs: 10, BackoffMaxSec: 1}, env.Processor, env.Metrics, env.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()
	env.t.Cleanup(func() {
		cancel()
		<-done
	})
	return client
}

func (env *TestEnvironment) Interactions(threadID string) []models.Interaction {
	env.t.Helper()
	var out []models.Interaction
	require.NoError(env.t, env.DB.Read(context.Background(), func(tx *database.Tx) error {
		var err error
		out, err = tx.ListInteractions(threadID, 100)
		return err
	}))
	return out
}

func (env *TestEnvironment) Reactions(interactionID int64) []models.Reaction {
	env.t.Helper()
	var out []models.Reaction
	require.NoError(env.t, env.DB.Read(context.Background(), func(tx *database.Tx) error {
		var err error
		out, err = tx.FetchReactions(interactionID)
		return err
	}))
	return out
}

// ProcessedCount reads the processed-message counter for one kind and outcome.
func (env *TestEnvironment) ProcessedCount(kind, outcome string) float64 {
	env.t.Helper()
	families, err := env.Registry.Gather()
	require.NoError(env.t, err)
	for _, mf := range families {
		if mf.GetName() != "swarmsync_messages_processed_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, map[string]string{"kind": kind, "outcome": outcome}) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}

// WaitForCondition polls condition until it holds or timeout passes.
func (env *TestEnvironment) WaitForCondition(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
