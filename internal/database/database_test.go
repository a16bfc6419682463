package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedThread(t *testing.T, db *Database, id string, variant models.ThreadVariant) {
	t.Helper()
	err := db.Write(context.Background(), func(tx *Tx) error {
		_, err := tx.CreateThreadIfMissing(models.Thread{ID: id, Variant: variant, CreationMs: 1000})
		return err
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Greater(t, first, 0)

	again, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn(":memory:"))
	assert.Contains(t, dsn("/tmp/x.db"), "_journal_mode=WAL")
	assert.Contains(t, dsn("/tmp/x.db?cache=shared"), "cache=shared&_foreign_keys=on")
}

func TestWrite_RollbackSkipsEffects(t *testing.T) {
	db := setupTestDB(t)
	ran := false
	boom := errors.New("boom")

	err := db.Write(context.Background(), func(tx *Tx) error {
		if _, err := tx.CreateThreadIfMissing(models.Thread{ID: "05aa", Variant: models.ThreadVariantContact, CreationMs: 1}); err != nil {
			return err
		}
		tx.AfterCommit("effect", func(context.Context) { ran = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)

	err = db.Read(context.Background(), func(tx *Tx) error {
		th, err := tx.FetchThread("05aa")
		assert.Nil(t, th)
		return err
	})
	require.NoError(t, err)
}

func TestWrite_AfterCommitDedupesByKey(t *testing.T) {
	db := setupTestDB(t)
	var calls []string

	err := db.Write(context.Background(), func(tx *Tx) error {
		assert.True(t, tx.AfterCommit("job", func(context.Context) { calls = append(calls, "first") }))
		assert.False(t, tx.AfterCommit("job", func(context.Context) { calls = append(calls, "second") }))
		assert.True(t, tx.AfterCommit("other", func(context.Context) { calls = append(calls, "other") }))
		assert.Empty(t, calls)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "other"}, calls)
}

func TestEffectQueue_CoalescesConcurrentRuns(t *testing.T) {
	q := newEffectQueue()
	release := make(chan struct{})
	started := make(chan struct{})
	var runs int32

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.run(context.Background(), "k", func(context.Context) {
			if atomic.AddInt32(&runs, 1) == 1 {
				close(started)
				<-release
			}
		})
	}()
	<-started

	// Both requests arrive while the first run is blocked and collapse into one rerun.
	q.run(context.Background(), "k", func(context.Context) { atomic.AddInt32(&runs, 1) })
	q.run(context.Background(), "k", func(context.Context) { atomic.AddInt32(&runs, 1) })
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestThreads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Write(ctx, func(tx *Tx) error {
		th, err := tx.CreateThreadIfMissing(models.Thread{ID: "05bb", Variant: models.ThreadVariantContact, CreationMs: 10})
		require.NoError(t, err)
		assert.False(t, th.ShouldBeVisible)

		again, err := tx.CreateThreadIfMissing(models.Thread{ID: "05bb", Variant: models.ThreadVariantContact, CreationMs: 99})
		require.NoError(t, err)
		assert.Equal(t, int64(10), again.CreationMs)

		changed, err := tx.MarkThreadVisible("05bb")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = tx.MarkThreadVisible("05bb")
		require.NoError(t, err)
		assert.False(t, changed)

		cfg := models.DisappearingConfig{Enabled: true, Type: models.DisappearAfterSend, DurationSeconds: 86400}
		require.NoError(t, tx.UpdateThreadDisappearing("05bb", cfg))

		th, err = tx.FetchThread("05bb")
		require.NoError(t, err)
		assert.True(t, th.ShouldBeVisible)
		assert.Equal(t, cfg, th.Disappearing)
		return nil
	})
	require.NoError(t, err)
}

func TestContacts_ProfileOnlyMovesForward(t *testing.T) {
	db := setupTestDB(t)

	err := db.Write(context.Background(), func(tx *Tx) error {
		written, err := tx.UpsertContactProfile("05cc", "Alice", "", nil, 200)
		require.NoError(t, err)
		assert.True(t, written)

		written, err = tx.UpsertContactProfile("05cc", "Old Alice", "", nil, 100)
		require.NoError(t, err)
		assert.False(t, written)

		changed, err := tx.SetContactClientVersion("05cc", models.ClientVersionNewDisappearing)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = tx.SetContactClientVersion("05cc", models.ClientVersionNewDisappearing)
		require.NoError(t, err)
		assert.False(t, changed)

		c, err := tx.FetchContact("05cc")
		require.NoError(t, err)
		assert.Equal(t, "Alice", c.Name)
		assert.Equal(t, models.ClientVersionNewDisappearing, c.LastKnownClientVersion)

		missing, err := tx.FetchContact("05zz")
		assert.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestInteractions(t *testing.T) {
	db := setupTestDB(t)
	seedThread(t, db, "05dd", models.ThreadVariantContact)
	ctx := context.Background()

	in := models.Interaction{
		ThreadID:     "05dd",
		AuthorID:     "05dd",
		Variant:      models.InteractionStandardIncoming,
		Body:         "hi",
		TimestampMs:  1000,
		ReceivedAtMs: 1100,
		ServerHash:   "hash-1",
	}

	t.Run("insert and duplicate", func(t *testing.T) {
		err := db.Write(ctx, func(tx *Tx) error {
			i := in
			require.NoError(t, tx.InsertInteraction(&i))
			assert.NotZero(t, i.ID)

			dup := in
			assert.ErrorIs(t, tx.InsertInteraction(&dup), ErrDuplicate)

			found, err := tx.FindInteraction("", 1000, "05dd")
			require.NoError(t, err)
			assert.Equal(t, i.ID, found.ID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("read marking starts timers", func(t *testing.T) {
		err := db.Write(ctx, func(tx *Tx) error {
			i := in
			i.TimestampMs = 2000
			i.ExpiresInSeconds = 60
			require.NoError(t, tx.InsertInteraction(&i))

			n, err := tx.MarkIncomingReadBefore("05dd", 2000, 5000)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			got, err := tx.FetchInteraction(i.ID)
			require.NoError(t, err)
			assert.True(t, got.WasRead)
			assert.Equal(t, int64(5000), got.ExpiresStartedAtMs)

			next, err := tx.NextExpiry()
			require.NoError(t, err)
			assert.Equal(t, int64(65000), next)

			removed, err := tx.DeleteExpiredInteractions(65000)
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("delete by hash", func(t *testing.T) {
		err := db.Write(ctx, func(tx *Tx) error {
			n, err := tx.DeleteInteractionsByHashes("05dd", []string{"hash-1", "unknown"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			count, err := tx.CountInteractions("05dd")
			require.NoError(t, err)
			assert.Zero(t, count)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestAttachmentsAndReactions(t *testing.T) {
	db := setupTestDB(t)
	seedThread(t, db, "05ee", models.ThreadVariantContact)

	err := db.Write(context.Background(), func(tx *Tx) error {
		i := models.Interaction{ThreadID: "05ee", AuthorID: "05ee", Variant: models.InteractionStandardIncoming, TimestampMs: 1, ReceivedAtMs: 1}
		require.NoError(t, tx.InsertInteraction(&i))

		require.NoError(t, tx.InsertAttachment(i.ID, 0, models.Attachment{ID: "a1", DownloadURL: "http://files/1", Size: 10}))
		atts, err := tx.InteractionAttachments(i.ID)
		require.NoError(t, err)
		require.Len(t, atts, 1)
		assert.Equal(t, models.AttachmentPendingDownload, atts[0].State)

		require.NoError(t, tx.SetAttachmentState("a1", models.AttachmentDownloaded))
		one, err := tx.FetchAttachment("a1")
		require.NoError(t, err)
		require.NotNil(t, one)
		assert.Equal(t, models.AttachmentDownloaded, one.State)
		assert.Equal(t, uint32(10), one.Size)

		missing, err := tx.FetchAttachment("nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, tx.UpsertReaction(models.Reaction{InteractionID: i.ID, AuthorID: "05ff", Emoji: "👍", TimestampMs: 5}))
		require.NoError(t, tx.UpsertReaction(models.Reaction{InteractionID: i.ID, AuthorID: "05ff", Emoji: "👍", TimestampMs: 6}))
		reactions, err := tx.FetchReactions(i.ID)
		require.NoError(t, err)
		require.Len(t, reactions, 1)
		assert.Equal(t, int64(6), reactions[0].TimestampMs)

		removed, err := tx.RemoveReaction(i.ID, "05ff", "👍")
		require.NoError(t, err)
		assert.True(t, removed)
		return nil
	})
	require.NoError(t, err)
}

func TestJobs_UpsertByDedupeKey(t *testing.T) {
	db := setupTestDB(t)

	err := db.Write(context.Background(), func(tx *Tx) error {
		job := models.Job{ID: "j1", Variant: models.JobDisappearingMessages, DedupeKey: "disappearing", NextRunMs: 500, CreatedAtMs: 1}
		require.NoError(t, tx.UpsertJob(job))

		job.ID = "j2"
		job.NextRunMs = 300
		require.NoError(t, tx.UpsertJob(job))

		n, err := tx.CountJobs(models.JobDisappearingMessages)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		due, err := tx.DueJobs(models.JobDisappearingMessages, 400, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "j1", due[0].ID)
		assert.Equal(t, int64(300), due[0].NextRunMs)
		return nil
	})
	require.NoError(t, err)
}

func TestRecordReceived(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UnixMilli()

	err := db.Write(context.Background(), func(tx *Tx) error {
		fresh, err := tx.RecordReceived("hash", "05aa", 0, now, now+1000)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = tx.RecordReceived("hash", "05aa", 0, now, now+1000)
		require.NoError(t, err)
		assert.False(t, fresh)

		fresh, err = tx.RecordReceived("hash", "05aa", 11, now, 0)
		require.NoError(t, err)
		assert.True(t, fresh)

		pruned, err := tx.PruneReceived(now + 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1), pruned)
		return nil
	})
	require.NoError(t, err)
}
