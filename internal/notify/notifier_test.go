package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/receive"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Deliver(ctx context.Context, a Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func newTestNotifier(sink Sink, cfg models.NotificationsConfig) *Notifier {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	n := New(sink, cfg, metrics.New(prometheus.NewRegistry()), false, logger)
	fixed := time.UnixMilli(1_700_000_000_000)
	n.now = func() time.Time { return fixed }
	return n
}

func messageNote(hash string, state models.ApplicationState) receive.Notification {
	return receive.Notification{
		Thread:      &models.Thread{ID: "05aa", Name: "Alice"},
		Interaction: &models.Interaction{ThreadID: "05aa", AuthorID: "05aa", Body: "hi", TimestampMs: 10, ServerHash: hash, HasMention: true},
		AppState:    state,
	}
}

func TestNotifyUser_DeliversAlert(t *testing.T) {
	sink := new(mockSink)
	sink.On("Deliver", mock.Anything, Alert{
		Kind:       KindMessage,
		ThreadID:   "05aa",
		ThreadName: "Alice",
		AuthorID:   "05aa",
		Body:       "hi",
		Mention:    true,
		AppState:   models.ApplicationActive,
	}).Return(nil).Once()

	newTestNotifier(sink, models.NotificationsConfig{}).NotifyUser(context.Background(), messageNote("h1", models.ApplicationActive))

	sink.AssertExpectations(t)
}

func TestNotifyUser_BackgroundDuplicateSuppressed(t *testing.T) {
	tests := []struct {
		name  string
		state models.ApplicationState
		calls int
	}{
		{"background drops repeat", models.ApplicationBackground, 1},
		{"active shows repeat", models.ApplicationActive, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := new(mockSink)
			sink.On("Deliver", mock.Anything, mock.Anything).Return(nil)
			n := newTestNotifier(sink, models.NotificationsConfig{})

			n.NotifyUser(context.Background(), messageNote("same", tt.state))
			n.NotifyUser(context.Background(), messageNote("same", tt.state))

			sink.AssertNumberOfCalls(t, "Deliver", tt.calls)
		})
	}
}

func TestNotifyUser_RateLimitedPerThread(t *testing.T) {
	sink := new(mockSink)
	sink.On("Deliver", mock.Anything, mock.Anything).Return(nil)
	n := newTestNotifier(sink, models.NotificationsConfig{RatePerSec: 0.001, Burst: 2})

	for i := 0; i < 5; i++ {
		n.NotifyUser(context.Background(), messageNote("", models.ApplicationActive))
	}
	sink.AssertNumberOfCalls(t, "Deliver", 2)

	other := messageNote("", models.ApplicationActive)
	other.Thread = &models.Thread{ID: "05bb"}
	n.NotifyUser(context.Background(), other)
	sink.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestNotifyReaction(t *testing.T) {
	sink := new(mockSink)
	sink.On("Deliver", mock.Anything, mock.MatchedBy(func(a Alert) bool {
		return a.Kind == KindReaction && a.Emoji == "🔥" && a.AuthorID == "05cc"
	})).Return(errors.New("sink down")).Once()

	n := newTestNotifier(sink, models.NotificationsConfig{})
	n.NotifyReaction(context.Background(), receive.Notification{
		Thread:   &models.Thread{ID: "05aa"},
		Reaction: &models.Reaction{InteractionID: 7, AuthorID: "05cc", Emoji: "🔥"},
	})

	sink.AssertExpectations(t)
}

func TestNotify_IgnoresIncompleteNotifications(t *testing.T) {
	sink := new(mockSink)
	n := newTestNotifier(sink, models.NotificationsConfig{})

	n.NotifyUser(context.Background(), receive.Notification{Thread: &models.Thread{ID: "05aa"}})
	n.NotifyReaction(context.Background(), receive.Notification{Reaction: &models.Reaction{}})

	sink.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestRecentSet_EvictsOldest(t *testing.T) {
	s := newRecentSet(2)

	assert.True(t, s.add("a"))
	assert.True(t, s.add("b"))
	assert.False(t, s.add("a"))
	assert.True(t, s.add("c"))
	assert.True(t, s.add("a"), "a was evicted by c")
	assert.False(t, s.add("c"))
}

func TestInteractionIdentifier(t *testing.T) {
	assert.Equal(t, "hash:abc", interactionIdentifier(&models.Interaction{ServerHash: "abc"}))
	assert.Equal(t, "msg:05aa:10:05bb", interactionIdentifier(&models.Interaction{ThreadID: "05aa", TimestampMs: 10, AuthorID: "05bb"}))
}

func TestLogSink(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	assert.NoError(t, NewLogSink(logger, false).Deliver(context.Background(), Alert{Kind: KindMessage, Body: "secret"}))
}
