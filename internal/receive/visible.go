package receive

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

func (r *Receiver) handleVisibleMessage(hc *handleContext, m *protocol.VisibleMessage) (*models.InsertedInteractionInfo, error) {
	store := hc.store
	me := r.deps.UserSessionID

	// Profile updates apply even if the message itself is later rejected as a duplicate.
	if m.Profile != nil && m.Sender != me {
		if _, err := store.UpsertContactProfile(m.Sender, m.Profile.DisplayName, m.Profile.ProfilePictureURL,
			m.Profile.ProfileKey, m.SentTimestampMs); err != nil {
			return nil, apperrors.NewDatabaseError("upsert profile", err)
		}
	}

	thread, err := r.ensureThread(hc, m.SentTimestampMs)
	if err != nil {
		return nil, err
	}

	isOutgoing := m.Sender == me
	if !isOutgoing && hc.variant == models.ThreadVariantCommunity && models.IsBlindedID(m.Sender) {
		isOutgoing = r.deps.Crypto.SessionIDMatchesBlindedID(me, m.Sender, thread.OpenGroupPublicKey)
	}

	if m.Reaction != nil {
		return r.handleReaction(hc, thread, m, isOutgoing)
	}

	variant := models.InteractionStandardIncoming
	state := models.InteractionStateUnset
	if isOutgoing {
		variant = models.InteractionStandardOutgoing
		state = models.InteractionStateSent
	}
	wasRead := isOutgoing ||
		r.deps.Config.TimestampAlreadyRead(hc.threadID, hc.variant, m.SentTimestampMs, m.OpenGroupServerMessageID)

	interaction := &models.Interaction{
		ServerHash:               m.ServerHash,
		ThreadID:                 hc.threadID,
		AuthorID:                 m.Sender,
		Variant:                  variant,
		Body:                     m.Text,
		TimestampMs:              m.SentTimestampMs,
		ReceivedAtMs:             m.ReceivedTimestampMs,
		WasRead:                  wasRead,
		HasMention:               r.mentionsCurrentUser(m.Text, thread),
		ExpiresInSeconds:         m.ExpiresInSeconds,
		ExpiresStartedAtMs:       r.expiryStart(hc, m.Base(), wasRead),
		OpenGroupServerMessageID: m.OpenGroupServerMessageID,
		OpenGroupWhisperMods:     m.OpenGroupWhisperMods,
		OpenGroupWhisperTo:       m.OpenGroupWhisperTo,
		State:                    state,
	}
	if m.LinkPreview != nil {
		interaction.LinkPreviewURL = m.LinkPreview.URL
		if err := store.UpsertLinkPreview(models.LinkPreview{
			URL:       m.LinkPreview.URL,
			Timestamp: models.LinkPreviewTimestamp(m.SentTimestampMs),
			Title:     m.LinkPreview.Title,
		}); err != nil {
			return nil, apperrors.NewDatabaseError("store link preview", err)
		}
	}

	stored, created, err := r.insertInteraction(store, interaction)
	if err != nil {
		return nil, err
	}
	if !created {
		return insertedInfo(stored), nil
	}

	if m.Quote != nil {
		if err := store.InsertQuote(models.Quote{
			InteractionID: stored.ID,
			AuthorID:      m.Quote.AuthorID,
			TimestampMs:   m.Quote.TimestampMs,
			Body:          m.Quote.Text,
		}); err != nil {
			return nil, apperrors.NewDatabaseError("store quote", err)
		}
	}

	if err := r.storeAttachments(hc, thread, stored, m, isOutgoing); err != nil {
		return nil, err
	}

	if isOutgoing && hc.variant == models.ThreadVariantContact {
		if err := store.SetContactApproved(hc.threadID, true); err != nil {
			return nil, apperrors.NewDatabaseError("approve contact", err)
		}
	}

	r.typing.Stop(hc.threadID, m.Sender)

	if !isOutgoing && !wasRead {
		r.notifyAfterCommit(hc, thread, stored)
	}
	return insertedInfo(stored), nil
}

// storeAttachments links every downloadable attachment and queues downloads
// for trusted senders and for threads that are not 1:1.
func (r *Receiver) storeAttachments(hc *handleContext, thread *models.Thread, stored *models.Interaction, m *protocol.VisibleMessage, isOutgoing bool) error {
	valid := m.ValidAttachments()
	if len(valid) == 0 {
		return nil
	}

	shouldDownload := isOutgoing || thread.Variant != models.ThreadVariantContact
	if !shouldDownload {
		contact, err := hc.store.FetchContact(m.Sender)
		if err != nil {
			return apperrors.NewDatabaseError("load contact", err)
		}
		shouldDownload = contact != nil && contact.IsTrusted
	}

	for i, a := range valid {
		attachment := models.Attachment{
			ID:            ulid.Make().String(),
			ServerID:      a.ServerID,
			ContentType:   a.ContentType,
			DownloadURL:   a.URL,
			Size:          a.Size,
			Digest:        a.Digest,
			EncryptionKey: a.Key,
			FileName:      a.FileName,
			Caption:       a.Caption,
			Width:         a.Width,
			Height:        a.Height,
			State:         models.AttachmentPendingDownload,
		}
		if err := hc.store.InsertAttachment(stored.ID, i, attachment); err != nil {
			return apperrors.NewDatabaseError("store attachment", err)
		}
		if shouldDownload && r.deps.Jobs != nil {
			jobs, threadID, interactionID, attachmentID := r.deps.Jobs, hc.threadID, stored.ID, attachment.ID
			hc.store.AfterCommit("attachment-download:"+attachmentID, func(ctx context.Context) {
				jobs.EnqueueAttachmentDownload(ctx, threadID, interactionID, attachmentID)
			})
		}
	}

	if !shouldDownload {
		r.fields(logrus.Fields{
			LogFieldThreadID: hc.threadID,
			LogFieldSender:   m.Sender,
			LogFieldCount:    len(valid),
		}).Debug("Skipping attachment download: sender not trusted")
	}
	return nil
}

// handleReaction applies an emoji reaction to an existing interaction. It
// never creates an interaction of its own.
func (r *Receiver) handleReaction(hc *handleContext, thread *models.Thread, m *protocol.VisibleMessage, isOutgoing bool) (*models.InsertedInteractionInfo, error) {
	target, err := hc.store.FindInteraction(hc.threadID, m.Reaction.TimestampMs, m.Reaction.AuthorID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("find reaction target", err)
	}
	if target == nil {
		return nil, apperrors.ObjectNotFound("reaction target")
	}

	switch m.Reaction.Action {
	case protocol.ReactionRemove:
		if _, err := hc.store.RemoveReaction(target.ID, m.Sender, m.Reaction.Emoji); err != nil {
			return nil, apperrors.NewDatabaseError("remove reaction", err)
		}
	default:
		reaction := &models.Reaction{
			InteractionID: target.ID,
			AuthorID:      m.Sender,
			Emoji:         m.Reaction.Emoji,
			TimestampMs:   m.SentTimestampMs,
			ServerHash:    m.ServerHash,
		}
		if err := hc.store.UpsertReaction(*reaction); err != nil {
			return nil, apperrors.NewDatabaseError("store reaction", err)
		}
		if !isOutgoing && target.Variant == models.InteractionStandardOutgoing {
			r.notifyReactionAfterCommit(hc, thread, target, reaction)
		}
	}
	return insertedInfo(target), nil
}

func (r *Receiver) mentionsCurrentUser(text string, thread *models.Thread) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, "@"+r.deps.UserSessionID) {
		return true
	}
	if thread.Variant == models.ThreadVariantCommunity && thread.OpenGroupPublicKey != "" {
		if blinded, err := r.deps.Crypto.BlindedID(thread.OpenGroupPublicKey); err == nil {
			return strings.Contains(text, "@"+blinded)
		}
	}
	return false
}

// expiryStart returns when a disappearing message starts counting down:
// at send time for after-send, on read for after-read.
func (r *Receiver) expiryStart(hc *handleContext, base *protocol.Common, wasRead bool) int64 {
	if base.ExpiresInSeconds == 0 {
		return 0
	}
	switch base.ExpiresType {
	case models.DisappearAfterSend:
		if hc.serverExpirationTimestamp > 0 {
			return hc.serverExpirationTimestamp - int64(base.ExpiresInSeconds)*1000
		}
		return base.SentTimestampMs
	case models.DisappearAfterRead:
		if wasRead {
			return r.now().UnixMilli()
		}
	}
	return 0
}
