package receive

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/database"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

func insertedInfo(i *models.Interaction) *models.InsertedInteractionInfo {
	return &models.InsertedInteractionInfo{ID: i.ID, Variant: i.Variant, TimestampMs: i.TimestampMs}
}

// insertInteraction stores i. When the uniqueness key is already taken the
// existing row's delivery state is refreshed instead and the existing row is
// returned with created set to false.
func (r *Receiver) insertInteraction(store Store, i *models.Interaction) (existing *models.Interaction, created bool, err error) {
	err = store.InsertInteraction(i)
	if err == nil {
		return i, true, nil
	}
	if !errors.Is(err, database.ErrDuplicate) {
		return nil, false, apperrors.NewDatabaseError("insert interaction", err)
	}

	existing, err = store.FetchInteractionByKey(i.ThreadID, i.TimestampMs, i.Variant, i.AuthorID)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("fetch interaction", err)
	}
	if existing == nil {
		return nil, false, apperrors.ObjectNotFound("duplicate interaction")
	}

	state := existing.State
	if i.Variant == models.InteractionStandardOutgoing {
		state = models.InteractionStateSent
	}
	if err := store.UpdateInteractionDelivery(existing.ID, state, i.ServerHash, i.WasRead); err != nil {
		return nil, false, apperrors.NewDatabaseError("update interaction delivery", err)
	}
	r.fields(logrus.Fields{
		LogFieldThreadID:      i.ThreadID,
		LogFieldInteractionID: existing.ID,
	}).Debug("Interaction already stored, refreshed delivery state")
	return existing, false, nil
}

// insertInfoInteraction stores a system message describing an event in the thread.
func (r *Receiver) insertInfoInteraction(hc *handleContext, msg protocol.Message, variant models.InteractionVariant, body any) (*models.InsertedInteractionInfo, error) {
	stored, _, err := r.storeInfoInteraction(hc, msg, variant, body)
	if err != nil {
		return nil, err
	}
	return insertedInfo(stored), nil
}

func (r *Receiver) storeInfoInteraction(hc *handleContext, msg protocol.Message, variant models.InteractionVariant, body any) (*models.Interaction, bool, error) {
	base := msg.Base()
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, false, apperrors.InvalidMessageCause(err, "unencodable info body")
	}
	i := &models.Interaction{
		ServerHash:   base.ServerHash,
		ThreadID:     hc.threadID,
		AuthorID:     base.Sender,
		Variant:      variant,
		Body:         string(encoded),
		TimestampMs:  base.SentTimestampMs,
		ReceivedAtMs: base.ReceivedTimestampMs,
		WasRead: base.Sender == r.deps.UserSessionID ||
			r.deps.Config.TimestampAlreadyRead(hc.threadID, hc.variant, base.SentTimestampMs, base.OpenGroupServerMessageID),
	}
	return r.insertInteraction(hc.store, i)
}

// notifyAfterCommit alerts the user once the interaction is durably stored.
func (r *Receiver) notifyAfterCommit(hc *handleContext, thread *models.Thread, i *models.Interaction) {
	if hc.opts.SuppressNotifications || r.deps.Notifier == nil {
		return
	}
	notifier := r.deps.Notifier
	n := Notification{Thread: thread, Interaction: i, AppState: r.deps.AppState()}
	hc.store.AfterCommit("notify:interaction:"+strconv.FormatInt(i.ID, 10), func(ctx context.Context) {
		notifier.NotifyUser(ctx, n)
	})
}

func (r *Receiver) notifyReactionAfterCommit(hc *handleContext, thread *models.Thread, target *models.Interaction, reaction *models.Reaction) {
	if hc.opts.SuppressNotifications || r.deps.Notifier == nil {
		return
	}
	notifier := r.deps.Notifier
	n := Notification{Thread: thread, Interaction: target, Reaction: reaction, AppState: r.deps.AppState()}
	key := "notify:reaction:" + strconv.FormatInt(target.ID, 10) + ":" + reaction.AuthorID + ":" + reaction.Emoji
	hc.store.AfterCommit(key, func(ctx context.Context) {
		notifier.NotifyReaction(ctx, n)
	})
}

// ensureThread creates 1:1 threads on demand. Community and group threads
// must already exist locally.
func (r *Receiver) ensureThread(hc *handleContext, creationMs int64) (*models.Thread, error) {
	var (
		thread *models.Thread
		err    error
	)
	if hc.variant == models.ThreadVariantContact {
		thread, err = hc.store.CreateThreadIfMissing(models.Thread{
			ID:         hc.threadID,
			Variant:    hc.variant,
			CreationMs: creationMs,
		})
	} else {
		thread, err = hc.store.FetchThread(hc.threadID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("load thread", err)
	}
	if thread == nil {
		return nil, apperrors.NoThread()
	}
	return thread, nil
}
