package receive

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
	"swarmsync/internal/tracing"
)

// disappearingJobKey collapses every disappearing-messages reschedule
// requested within one transaction into a single job upsert.
const disappearingJobKey = "disappearing-messages-job"

// shouldBecomeVisible decides whether handling a message may reveal its thread.
func (r *Receiver) shouldBecomeVisible(msg protocol.Message) bool {
	switch m := msg.(type) {
	case *protocol.ReadReceipt,
		*protocol.TypingIndicator,
		*protocol.UnsendRequest,
		*protocol.GroupUpdateInvite,
		*protocol.GroupUpdatePromote,
		*protocol.GroupUpdateInfoChange,
		*protocol.GroupUpdateMemberChange,
		*protocol.GroupUpdateMemberLeft,
		*protocol.GroupUpdateMemberLeftNotification,
		*protocol.GroupUpdateInviteResponse,
		*protocol.GroupUpdateDeleteMemberContent,
		*protocol.LibSessionMessage:
		return false
	case *protocol.CallMessage:
		return m.Sender != r.deps.UserSessionID
	}
	return true
}

// PostHandle runs after every successful Handle. It schedules the
// disappearing-messages job and reveals the thread when the message warrants
// it. A thread that is already visible is never written again.
func (r *Receiver) PostHandle(
	ctx context.Context,
	store Store,
	threadID string,
	variant models.ThreadVariant,
	msg protocol.Message,
	inserted *models.InsertedInteractionInfo,
) error {
	_, span := tracing.StartSpan(ctx, "receive.post_handle",
		attribute.String("message_kind", msg.Kind().String()),
	)
	defer span.End()

	if variant != models.ThreadVariantCommunity && r.deps.Jobs != nil {
		jobs := r.deps.Jobs
		store.AfterCommit(disappearingJobKey, func(ctx context.Context) {
			jobs.UpsertDisappearingMessages(ctx)
		})
	}

	if !r.shouldBecomeVisible(msg) {
		return nil
	}

	thread, err := store.FetchThread(threadID)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return err
	}
	if thread == nil {
		r.fields(logrus.Fields{
			LogFieldThreadID:    threadID,
			LogFieldMessageKind: msg.Kind().String(),
		}).Debug("Skipping visibility update: thread not stored")
		return nil
	}
	if thread.ShouldBeVisible {
		return nil
	}

	if _, err := store.MarkThreadVisible(threadID); err != nil {
		tracing.RecordSpanError(span, err)
		return err
	}
	if inserted != nil {
		r.fields(logrus.Fields{
			LogFieldThreadID:      threadID,
			LogFieldInteractionID: inserted.ID,
		}).Debug("Thread became visible")
	}
	return nil
}
