package receive

import (
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// checkOutdated rejects messages that locally-known config state says the
// conversation has already moved past. The decision table is ordered: the
// first matching rule wins.
func (r *Receiver) checkOutdated(msg protocol.Message, threadID string, variant models.ThreadVariant) error {
	switch msg.(type) {
	case *protocol.ReadReceipt, *protocol.UnsendRequest:
		return nil
	}

	if variant == models.ThreadVariantGroup {
		switch msg.(type) {
		case *protocol.GroupUpdateInviteResponse,
			*protocol.GroupUpdateDeleteMemberContent,
			*protocol.GroupUpdateMemberLeft,
			*protocol.LibSessionMessage:
			return nil
		}
		if err := r.checkGroupOutdated(msg, threadID); err != nil {
			return err
		}
	}

	return r.checkConversationOutdated(msg, threadID, variant)
}

func (r *Receiver) checkGroupOutdated(msg protocol.Message, groupID string) error {
	cache := r.deps.Config
	switch {
	case !cache.HasCredentials(groupID):
		return apperrors.OutdatedMessage("group has no credentials")
	case cache.GroupIsDestroyed(groupID):
		return apperrors.OutdatedMessage("group destroyed")
	case cache.WasKickedFromGroup(groupID):
		return apperrors.OutdatedMessage("kicked from group")
	}

	sentSeconds := msg.Base().SentTimestampMs / 1000
	if cutoff := cache.GroupDeleteBefore(groupID); cutoff > 0 && sentSeconds < cutoff {
		return apperrors.OutdatedMessage("sent before group delete cutoff")
	}
	if vm, ok := msg.(*protocol.VisibleMessage); ok && len(vm.Attachments) > 0 {
		if cutoff := cache.GroupDeleteAttachmentsBefore(groupID); cutoff > 0 && sentSeconds < cutoff {
			return apperrors.OutdatedMessage("sent before group attachment delete cutoff")
		}
	}
	return nil
}

// checkConversationOutdated stops a late message from resurrecting a
// conversation that config sync has hidden.
func (r *Receiver) checkConversationOutdated(msg protocol.Message, threadID string, variant models.ThreadVariant) error {
	ts := msg.Base().SentTimestampMs
	if ts == 0 {
		ts = r.now().UnixMilli()
	}
	visible := r.deps.Config.ConversationInConfig(threadID, variant, true)
	if !visible && !r.deps.Config.CanPerformChange(threadID, variant, ts) {
		return apperrors.OutdatedMessage("conversation hidden by a newer config change")
	}
	return nil
}
