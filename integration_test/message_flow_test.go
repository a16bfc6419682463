package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/ingest"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/notify"
	"swarmsync/internal/protocol"
)

func TestMessageFlow_FeedToDatabase(t *testing.T) {
	env := NewTestEnvironment(t)
	contact := NewContact(t)
	me := env.Me.Keys().SessionID()

	client := env.RunFeed(env.StartFeed())
	env.Push(contact.Frame(t, me, 1000, "hash-1", TextContent("hello over the feed")))

	require.True(t, env.WaitForCondition(func() bool {
		return len(env.Interactions(contact.ID())) == 1
	}, 5*time.Second), "message never reached the database")
	assert.True(t, client.IsConnected())

	stored := env.Interactions(contact.ID())[0]
	assert.Equal(t, "hello over the feed", stored.Body)
	assert.Equal(t, contact.ID(), stored.AuthorID)
	assert.Equal(t, models.InteractionStandardIncoming, stored.Variant)
	assert.Equal(t, int64(1000), stored.TimestampMs)

	require.True(t, env.WaitForCondition(func() bool { return len(env.Alerts.Alerts()) == 1 }, 2*time.Second))
	alert := env.Alerts.Alerts()[0]
	assert.Equal(t, notify.KindMessage, alert.Kind)
	assert.Equal(t, contact.ID(), alert.ThreadID)

	// the same delivery pushed again is deduplicated
	env.Push(contact.Frame(t, me, 1000, "hash-1", TextContent("hello over the feed")))
	require.True(t, env.WaitForCondition(func() bool {
		return env.ProcessedCount("visibleMessage", metrics.OutcomeDuplicate) == 1
	}, 5*time.Second))
	assert.Len(t, env.Interactions(contact.ID()), 1)
	assert.Len(t, env.Alerts.Alerts(), 1)
}

func TestMessageFlow_ReactionThenUnsend(t *testing.T) {
	env := NewTestEnvironment(t)
	contact := NewContact(t)
	me := env.Me.Keys().SessionID()
	ctx := context.Background()

	// frames within one batch run concurrently, so the target goes first
	for _, frame := range []ingest.Frame{
		contact.Frame(t, me, 1000, "hash-text", TextContent("react to me")),
		contact.Frame(t, me, 2000, "hash-react", ReactionContent(1000, contact.ID(), "👍", protocol.ReactionReact)),
	} {
		require.NoError(t, env.Processor.ProcessOne(ctx, frame).Err)
	}

	stored := env.Interactions(contact.ID())
	require.Len(t, stored, 1, "reactions attach to their target")
	reactions := env.Reactions(stored[0].ID)
	require.Len(t, reactions, 1)
	assert.Equal(t, "👍", reactions[0].Emoji)

	res := env.Processor.ProcessOne(ctx, contact.Frame(t, me, 3000, "hash-unsend", UnsendContent(1000, contact.ID())))
	require.NoError(t, res.Err)
	assert.Empty(t, env.Interactions(contact.ID()))
}

func TestMessageFlow_ForgedUnsendRejected(t *testing.T) {
	env := NewTestEnvironment(t)
	author := NewContact(t)
	intruder := NewContact(t)
	me := env.Me.Keys().SessionID()
	ctx := context.Background()

	require.NoError(t, env.Processor.ProcessOne(ctx, author.Frame(t, me, 1000, "hash-1", TextContent("keep me"))).Err)

	res := env.Processor.ProcessOne(ctx, intruder.Frame(t, me, 2000, "hash-2", UnsendContent(1000, author.ID())))
	assert.Error(t, res.Err)
	assert.Len(t, env.Interactions(author.ID()), 1)
}

func TestMessageFlow_PollerAndFeedConverge(t *testing.T) {
	env := NewTestEnvironment(t)
	contact := NewContact(t)
	me := env.Me.Keys().SessionID()
	frame := contact.Frame(t, me, 1000, "hash-shared", TextContent("delivered twice"))

	client := env.RunFeed(env.StartFeed())
	env.Push(frame)
	require.True(t, env.WaitForCondition(func() bool {
		return len(env.Interactions(contact.ID())) == 1
	}, 5*time.Second))
	assert.True(t, client.IsConnected())

	poller := ingest.NewPoller(staticSource{batch: ingest.Batch{Frames: []ingest.Frame{frame}}}, env.Processor, models.FeedConfig{PollIntervalSec: 60}, env.logger)
	poller.PollOnce(context.Background())

	assert.Len(t, env.Interactions(contact.ID()), 1)
	assert.Equal(t, float64(1), env.ProcessedCount("visibleMessage", metrics.OutcomeDuplicate))
}

func TestMessageFlow_DedupSurvivesRestart(t *testing.T) {
	env := NewTestEnvironment(t)
	contact := NewContact(t)
	me := env.Me.Keys().SessionID()
	frame := contact.Frame(t, me, 1000, "hash-1", TextContent("persisted"))

	first := env.Processor.ProcessOne(context.Background(), frame)
	require.NoError(t, first.Err)
	assert.Equal(t, metrics.OutcomeStored, first.Outcome)

	env.Restart()

	second := env.Processor.ProcessOne(context.Background(), frame)
	require.NoError(t, second.Err)
	assert.Equal(t, metrics.OutcomeDuplicate, second.Outcome)
	assert.Len(t, env.Interactions(contact.ID()), 1)
}

func TestMessageFlow_BlockedContactIgnored(t *testing.T) {
	env := NewTestEnvironment(t)
	contact := NewContact(t)
	me := env.Me.Keys().SessionID()
	env.State.SetBlocked(contact.ID(), true)

	res := env.Processor.ProcessOne(context.Background(), contact.Frame(t, me, 1000, "hash-1", TextContent("ignored")))
	assert.Error(t, res.Err)
	assert.Empty(t, env.Interactions(contact.ID()))
	assert.Empty(t, env.Alerts.Alerts())
}

// staticSource serves one batch and then reports the end of the backlog.
type staticSource struct {
	batch ingest.Batch
}

func (s staticSource) Fetch(_ context.Context, cursor string) (*ingest.Batch, error) {
	if cursor != "" {
		return &ingest.Batch{}, nil
	}
	b := s.batch
	b.Cursor = "end"
	return &b, nil
}
