package receive

import (
	"context"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/crypto"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// GroupInfoChange is the body of an infoGroupInfoUpdated interaction.
type GroupInfoChange struct {
	ChangeType            protocol.InfoChangeType `json:"change_type"`
	Name                  string                  `json:"name,omitempty"`
	DisappearingDurationS uint32                  `json:"disappearing_duration_seconds,omitempty"`
}

// GroupMembersChange is the body of an infoGroupMembersUpdated interaction.
type GroupMembersChange struct {
	ChangeType    protocol.MemberChangeType `json:"change_type"`
	Members       []string                  `json:"members"`
	HistoryShared bool                      `json:"history_shared,omitempty"`
}

// GroupInvite is the body of an infoGroupInfoInvited interaction.
type GroupInvite struct {
	InvitedBy string `json:"invited_by"`
	Name      string `json:"name"`
}

func requireGroupThread(hc *handleContext, kind protocol.Kind) error {
	if hc.variant != models.ThreadVariantGroup || !models.IsGroupID(hc.threadID) {
		return apperrors.InvalidMessage(kind.String() + " outside a group thread")
	}
	return nil
}

// inGroup rescopes the handler context to the group thread, for control
// messages that arrive in the admin's 1:1 thread.
func inGroup(hc *handleContext, groupID string) *handleContext {
	scoped := *hc
	scoped.threadID = groupID
	scoped.variant = models.ThreadVariantGroup
	return &scoped
}

// verifyAdminSignature checks a signature made with the group's identity key.
func (r *Receiver) verifyAdminSignature(groupID string, payload, signature []byte) error {
	pub, err := crypto.GroupPublicKey(groupID)
	if err != nil {
		return apperrors.InvalidMessageCause(err, "invalid group id")
	}
	if !r.deps.Crypto.Verify(pub, payload, signature) {
		return apperrors.InvalidMessage("invalid admin signature")
	}
	return nil
}

func (r *Receiver) handleGroupInvite(hc *handleContext, m *protocol.GroupUpdateInvite) (*models.InsertedInteractionInfo, error) {
	me := r.deps.UserSessionID
	if err := r.verifyAdminSignature(m.GroupSessionID, protocol.InviteSignaturePayload(me, m.SentTimestampMs), m.AdminSignature); err != nil {
		return nil, err
	}

	ghc := inGroup(hc, m.GroupSessionID)
	thread, err := ghc.store.CreateThreadIfMissing(models.Thread{
		ID:         m.GroupSessionID,
		Variant:    models.ThreadVariantGroup,
		CreationMs: m.SentTimestampMs,
		Name:       m.GroupName,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("create group thread", err)
	}

	existing, err := ghc.store.FetchGroupMember(m.GroupSessionID, me)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load group member", err)
	}
	if existing == nil {
		if err := ghc.store.UpsertGroupMember(models.GroupMember{
			GroupID:    m.GroupSessionID,
			ProfileID:  me,
			Role:       models.GroupRoleStandard,
			RoleStatus: models.GroupRoleStatusPending,
		}); err != nil {
			return nil, apperrors.NewDatabaseError("store group member", err)
		}
	}

	stored, created, err := r.storeInfoInteraction(ghc, m, models.InteractionInfoGroupInfoInvited,
		GroupInvite{InvitedBy: m.Sender, Name: m.GroupName})
	if err != nil {
		return nil, err
	}
	if created && !stored.WasRead {
		r.notifyAfterCommit(ghc, thread, stored)
	}
	return insertedInfo(stored), nil
}

// handleGroupPromote makes the current user an admin. The identity seed in
// the message is itself the proof of authority.
func (r *Receiver) handleGroupPromote(hc *handleContext, m *protocol.GroupUpdatePromote) (*models.InsertedInteractionInfo, error) {
	groupID, err := crypto.GroupIDFromSeed(m.GroupIdentitySeed)
	if err != nil {
		return nil, apperrors.InvalidMessageCause(err, "invalid group identity seed")
	}

	store := hc.store
	thread, err := store.CreateThreadIfMissing(models.Thread{
		ID:         groupID,
		Variant:    models.ThreadVariantGroup,
		CreationMs: m.SentTimestampMs,
		Name:       m.GroupName,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("create group thread", err)
	}
	if m.GroupName != "" && thread.Name != m.GroupName {
		if err := store.UpdateThreadName(groupID, m.GroupName); err != nil {
			return nil, apperrors.NewDatabaseError("update group name", err)
		}
	}
	if err := store.UpsertGroupMember(models.GroupMember{
		GroupID:    groupID,
		ProfileID:  r.deps.UserSessionID,
		Role:       models.GroupRoleAdmin,
		RoleStatus: models.GroupRoleStatusAccepted,
	}); err != nil {
		return nil, apperrors.NewDatabaseError("store group admin", err)
	}

	r.fields(logrus.Fields{LogFieldThreadID: groupID}).Info("Promoted to group admin")
	return nil, nil
}

func (r *Receiver) handleGroupInfoChange(hc *handleContext, m *protocol.GroupUpdateInfoChange) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	if err := r.verifyAdminSignature(hc.threadID, protocol.InfoChangeSignaturePayload(m.ChangeType, m.SentTimestampMs), m.AdminSignature); err != nil {
		return nil, err
	}
	thread, err := r.ensureThread(hc, m.SentTimestampMs)
	if err != nil {
		return nil, err
	}

	change := GroupInfoChange{ChangeType: m.ChangeType}
	switch m.ChangeType {
	case protocol.InfoChangeName:
		change.Name = m.UpdatedName
		if m.UpdatedName != "" && m.UpdatedName != thread.Name {
			if err := hc.store.UpdateThreadName(hc.threadID, m.UpdatedName); err != nil {
				return nil, apperrors.NewDatabaseError("update group name", err)
			}
		}
	case protocol.InfoChangeDisappearingMessages:
		change.DisappearingDurationS = m.UpdatedExpirationSeconds
		cfg := models.DisappearingConfig{}
		if m.UpdatedExpirationSeconds > 0 {
			cfg = models.DisappearingConfig{Enabled: true, Type: models.DisappearAfterSend, DurationSeconds: m.UpdatedExpirationSeconds}
		}
		if cfg != thread.Disappearing {
			if err := hc.store.UpdateThreadDisappearing(hc.threadID, cfg); err != nil {
				return nil, apperrors.NewDatabaseError("update group disappearing config", err)
			}
		}
	}

	return r.insertInfoInteraction(hc, m, models.InteractionInfoGroupInfoUpdated, change)
}

func (r *Receiver) handleGroupMemberChange(hc *handleContext, m *protocol.GroupUpdateMemberChange) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	if err := r.verifyAdminSignature(hc.threadID, protocol.MemberChangeSignaturePayload(m.ChangeType, m.SentTimestampMs), m.AdminSignature); err != nil {
		return nil, err
	}
	if _, err := r.ensureThread(hc, m.SentTimestampMs); err != nil {
		return nil, err
	}

	for _, id := range m.MemberSessionIDs {
		var err error
		switch m.ChangeType {
		case protocol.MemberChangeAdded:
			err = hc.store.UpsertGroupMember(models.GroupMember{
				GroupID:    hc.threadID,
				ProfileID:  id,
				Role:       models.GroupRoleStandard,
				RoleStatus: models.GroupRoleStatusPending,
			})
		case protocol.MemberChangeRemoved:
			err = hc.store.RemoveGroupMember(hc.threadID, id)
		case protocol.MemberChangePromoted:
			err = hc.store.UpsertGroupMember(models.GroupMember{
				GroupID:    hc.threadID,
				ProfileID:  id,
				Role:       models.GroupRoleAdmin,
				RoleStatus: models.GroupRoleStatusAccepted,
			})
		}
		if err != nil {
			return nil, apperrors.NewDatabaseError("update group roster", err)
		}
	}

	return r.insertInfoInteraction(hc, m, models.InteractionInfoGroupMembersUpdated, GroupMembersChange{
		ChangeType:    m.ChangeType,
		Members:       m.MemberSessionIDs,
		HistoryShared: m.HistoryShared,
	})
}

func (r *Receiver) handleGroupMemberLeft(hc *handleContext, m *protocol.GroupUpdateMemberLeft) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	if err := hc.store.RemoveGroupMember(hc.threadID, m.Sender); err != nil {
		return nil, apperrors.NewDatabaseError("remove group member", err)
	}
	return nil, nil
}

func (r *Receiver) handleGroupMemberLeftNotification(hc *handleContext, m *protocol.GroupUpdateMemberLeftNotification) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	if _, err := r.ensureThread(hc, m.SentTimestampMs); err != nil {
		return nil, err
	}
	return r.insertInfoInteraction(hc, m, models.InteractionInfoGroupMembersUpdated, GroupMembersChange{
		ChangeType: protocol.MemberChangeRemoved,
		Members:    []string{m.Sender},
	})
}

func (r *Receiver) handleGroupInviteResponse(hc *handleContext, m *protocol.GroupUpdateInviteResponse) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	if !m.IsApproved {
		return nil, nil
	}

	member, err := hc.store.FetchGroupMember(hc.threadID, m.Sender)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load group member", err)
	}
	role := models.GroupRoleStandard
	if member != nil {
		role = member.Role
	}
	if err := hc.store.UpsertGroupMember(models.GroupMember{
		GroupID:    hc.threadID,
		ProfileID:  m.Sender,
		Role:       role,
		RoleStatus: models.GroupRoleStatusAccepted,
	}); err != nil {
		return nil, apperrors.NewDatabaseError("accept group member", err)
	}
	return nil, nil
}

// handleGroupDeleteMemberContent removes messages. Admin-signed requests may
// remove any listed hash or member; unsigned ones only the sender's own messages.
func (r *Receiver) handleGroupDeleteMemberContent(hc *handleContext, m *protocol.GroupUpdateDeleteMemberContent) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}

	var hashes, authors []string
	if len(m.AdminSignature) > 0 {
		payload := protocol.DeleteContentSignaturePayload(m.SentTimestampMs, m.MemberSessionIDs, m.MessageHashes)
		if err := r.verifyAdminSignature(hc.threadID, payload, m.AdminSignature); err != nil {
			return nil, err
		}
		hashes, authors = m.MessageHashes, m.MemberSessionIDs
	} else {
		for _, id := range m.MemberSessionIDs {
			if id != m.Sender {
				return nil, apperrors.InvalidSender("member may only delete their own content")
			}
		}
		authors = m.MemberSessionIDs
		if len(m.MessageHashes) > 0 {
			r.fields(logrus.Fields{
				LogFieldThreadID: hc.threadID,
				LogFieldSender:   m.Sender,
				LogFieldCount:    len(m.MessageHashes),
			}).Debug("Ignoring unsigned hash deletions")
		}
	}

	var removed int64
	if len(hashes) > 0 {
		n, err := hc.store.DeleteInteractionsByHashes(hc.threadID, hashes)
		if err != nil {
			return nil, apperrors.NewDatabaseError("delete by hash", err)
		}
		removed += n
	}
	if len(authors) > 0 {
		n, err := hc.store.DeleteInteractionsByAuthors(hc.threadID, authors, m.SentTimestampMs)
		if err != nil {
			return nil, apperrors.NewDatabaseError("delete by author", err)
		}
		removed += n
	}
	r.fields(logrus.Fields{
		LogFieldThreadID: hc.threadID,
		LogFieldCount:    removed,
	}).Info("Deleted group member content")
	return nil, nil
}

// handleLibSessionMessage decrypts and applies an out-of-band group instruction.
func (r *Receiver) handleLibSessionMessage(hc *handleContext, m *protocol.LibSessionMessage) (*models.InsertedInteractionInfo, error) {
	if err := requireGroupThread(hc, m.Kind()); err != nil {
		return nil, err
	}
	groupID := hc.threadID

	plaintext, _, err := r.deps.Crypto.DecryptGroup(m.Ciphertext, groupID, r.deps.Config.GroupKeys(groupID))
	if err != nil {
		return nil, apperrors.DecryptionFailed("group", err)
	}
	instruction, err := protocol.DecodeLibSessionInstruction(plaintext)
	if err != nil {
		return nil, apperrors.InvalidMessageCause(err, "malformed group instruction")
	}
	signed, err := instruction.SignedBytes()
	if err != nil {
		return nil, apperrors.InvalidMessageCause(err, "malformed group instruction")
	}
	if err := r.verifyAdminSignature(groupID, signed, instruction.Signature); err != nil {
		return nil, err
	}

	switch instruction.Type {
	case protocol.LibSessionKicked:
		if instruction.MemberSessionID != r.deps.UserSessionID {
			return nil, nil
		}
		if err := hc.store.RemoveGroupMember(groupID, r.deps.UserSessionID); err != nil {
			return nil, apperrors.NewDatabaseError("remove kicked member", err)
		}
		if mutator := r.deps.ConfigMutator; mutator != nil {
			hc.store.AfterCommit("group-kicked:"+groupID, func(context.Context) {
				mutator.MarkKickedFromGroup(groupID)
			})
		}
		r.fields(logrus.Fields{LogFieldThreadID: groupID}).Warn("Removed from group by admin")
	default:
		r.fields(logrus.Fields{
			LogFieldThreadID:  groupID,
			LogFieldOperation: instruction.Type,
		}).Debug("Ignoring unknown group instruction")
	}
	return nil, nil
}
