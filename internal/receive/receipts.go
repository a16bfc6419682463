package receive

import (
	"github.com/sirupsen/logrus"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// handleReadReceipt marks the listed outgoing messages as read by the recipient.
func (r *Receiver) handleReadReceipt(hc *handleContext, m *protocol.ReadReceipt) (*models.InsertedInteractionInfo, error) {
	updated, err := hc.store.MarkOutgoingReadByRecipient(hc.threadID, m.TimestampsMs, m.SentTimestampMs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("mark read by recipient", err)
	}
	r.fields(logrus.Fields{
		LogFieldThreadID: hc.threadID,
		LogFieldCount:    updated,
	}).Debug("Applied read receipt")
	return nil, nil
}

// handleTypingIndicator only tracks in-memory state; nothing is persisted.
func (r *Receiver) handleTypingIndicator(hc *handleContext, m *protocol.TypingIndicator) (*models.InsertedInteractionInfo, error) {
	if hc.variant != models.ThreadVariantContact || m.Sender == r.deps.UserSessionID {
		return nil, nil
	}
	switch m.Action {
	case protocol.TypingStarted:
		r.typing.Start(hc.threadID, m.Sender, r.now())
	case protocol.TypingStopped:
		r.typing.Stop(hc.threadID, m.Sender)
	}
	return nil, nil
}

// handleUnsendRequest removes a message its author asked to retract. Our own
// messages in 1:1 threads are kept as tombstones so the other device can show
// that they were deleted.
func (r *Receiver) handleUnsendRequest(hc *handleContext, m *protocol.UnsendRequest) (*models.InsertedInteractionInfo, error) {
	me := r.deps.UserSessionID
	if m.Sender != m.Author && m.Sender != me {
		return nil, apperrors.InvalidSender("unsend request not sent by author")
	}

	// Sync copies from our own devices arrive in our own thread, so search everywhere.
	searchThread := hc.threadID
	if m.Sender == me {
		searchThread = ""
	}
	target, err := hc.store.FindInteraction(searchThread, m.TargetTimestampMs, m.Author)
	if err != nil {
		return nil, apperrors.NewDatabaseError("find unsend target", err)
	}
	if target == nil {
		r.fields(logrus.Fields{
			LogFieldThreadID: hc.threadID,
			LogFieldSender:   m.Sender,
		}).Debug("Unsend target not found")
		return nil, nil
	}

	if target.Variant == models.InteractionStandardOutgoing && hc.variant == models.ThreadVariantContact {
		err = hc.store.MarkInteractionDeleted(target.ID, models.InteractionStandardOutgoingDeleted)
	} else {
		err = hc.store.DeleteInteraction(target.ID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("apply unsend", err)
	}
	return nil, nil
}
