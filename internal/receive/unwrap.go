package receive

import (
	"context"
	"strconv"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// unwrapped is the decrypted payload plus everything the classifier needs to
// attach to the message built from it.
type unwrapped struct {
	plaintext []byte
	// custom is set when the payload is not wire content and needs no parsing.
	custom protocol.Message

	sender                   string
	sentTimestampMs          int64
	serverHash               string
	openGroupServerMessageID int64
	whisper                  bool
	whisperMods              bool
	whisperTo                string
	// syncTarget marks an outgoing copy delivered back to the sender.
	syncTarget string

	namespace        models.Namespace
	threadVariant    models.ThreadVariant
	threadID         func(protocol.Message) string
	uniqueIdentifier string
}

func fixedThread(id string) func(protocol.Message) string {
	return func(protocol.Message) string { return id }
}

// contactThread routes sync copies to the conversation they belong to.
func contactThread(sender string) func(protocol.Message) string {
	return func(m protocol.Message) string {
		switch msg := m.(type) {
		case *protocol.VisibleMessage:
			if msg.SyncTarget != "" {
				return msg.SyncTarget
			}
		case *protocol.ExpirationTimerUpdate:
			if msg.SyncTarget != "" {
				return msg.SyncTarget
			}
		}
		return sender
	}
}

// unwrap selects the decoding strategy from the origin and namespace.
// Config namespaces are expected to be diverted before this is called.
func (r *Receiver) unwrap(ctx context.Context, data []byte, origin models.Origin) (*unwrapped, error) {
	switch origin.Kind {
	case models.OriginCommunity:
		return r.unwrapCommunity(data, origin.Community)
	case models.OriginOpenGroupInbox:
		return r.unwrapInbox(data, origin.Inbox)
	case models.OriginSwarm:
		return r.unwrapSwarm(ctx, data, origin.Swarm)
	}
	return nil, apperrors.InvalidMessage("unknown origin")
}

func (r *Receiver) unwrapCommunity(data []byte, o *models.CommunityOrigin) (*unwrapped, error) {
	return &unwrapped{
		plaintext:                protocol.Unpad(data),
		sender:                   o.Sender,
		sentTimestampMs:          o.PostedAtMs,
		openGroupServerMessageID: o.ServerMessageID,
		whisper:                  o.Whisper,
		whisperMods:              o.WhisperMods,
		whisperTo:                o.WhisperTo,
		threadVariant:            models.ThreadVariantCommunity,
		threadID:                 fixedThread(o.OpenGroupID),
		uniqueIdentifier:         communityIdentifier(o.OpenGroupID, o.ServerMessageID),
	}, nil
}

// Server message ids are only unique within one room or one server's inbox,
// so the identifier carries that scope.
func communityIdentifier(openGroupID string, serverMessageID int64) string {
	return "community:" + openGroupID + ":" + strconv.FormatInt(serverMessageID, 10)
}

func inboxIdentifier(serverPublicKey string, serverMessageID int64) string {
	return "inbox:" + serverPublicKey + ":" + strconv.FormatInt(serverMessageID, 10)
}

func (r *Receiver) unwrapInbox(data []byte, o *models.OpenGroupInboxOrigin) (*unwrapped, error) {
	plaintext, sender, err := r.deps.Crypto.DecryptBlinded(data, o.SenderBlindedID, o.RecipientBlindedID, o.ServerPublicKey)
	if err != nil {
		return nil, err
	}
	me, err := r.deps.Crypto.BlindedID(o.ServerPublicKey)
	if err != nil {
		return nil, apperrors.InvalidSender(err.Error())
	}

	u := &unwrapped{
		plaintext:                protocol.Unpad(plaintext),
		sender:                   sender,
		sentTimestampMs:          o.TimestampMs,
		openGroupServerMessageID: o.ServerMessageID,
		threadVariant:            models.ThreadVariantContact,
		uniqueIdentifier:         inboxIdentifier(o.ServerPublicKey, o.ServerMessageID),
	}
	other := o.SenderBlindedID
	if o.SenderBlindedID == me {
		other = o.RecipientBlindedID
		u.syncTarget = other
	}
	u.threadID = fixedThread(other)
	return u, nil
}

func (r *Receiver) unwrapSwarm(ctx context.Context, data []byte, o *models.SwarmOrigin) (*unwrapped, error) {
	u := &unwrapped{
		serverHash:       o.ServerHash,
		namespace:        o.Namespace,
		uniqueIdentifier: o.ServerHash,
	}

	switch o.Namespace {
	case models.NamespaceDefault:
		env, err := protocol.UnwrapWebSocketEnvelope(data)
		if err != nil {
			return nil, apperrors.InvalidMessageCause(err, "malformed envelope")
		}
		if len(env.Content) == 0 {
			return nil, apperrors.InvalidMessage("envelope has no content")
		}
		plaintext, sender, err := r.deps.Crypto.DecryptSession(env.Content)
		if err != nil {
			return nil, err
		}
		u.plaintext = protocol.Unpad(plaintext)
		u.sender = sender
		u.sentTimestampMs = int64(env.TimestampMs)
		u.threadVariant = models.ThreadVariantContact
		u.threadID = contactThread(sender)
		return u, nil

	case models.NamespaceGroupMessages:
		keys := r.deps.Config.GroupKeys(o.PublicKey)
		plaintext, sender, err := r.deps.Crypto.DecryptGroup(data, o.PublicKey, keys)
		if err != nil {
			if len(keys) == 0 {
				r.requestGroupKeys(ctx, o.PublicKey)
			}
			return nil, err
		}
		env, err := protocol.DecodeEnvelope(plaintext)
		if err != nil {
			return nil, apperrors.InvalidMessageCause(err, "malformed group envelope")
		}
		u.plaintext = env.Content
		u.sender = sender
		u.sentTimestampMs = int64(env.TimestampMs)
		u.threadVariant = models.ThreadVariantGroup
		u.threadID = fixedThread(o.PublicKey)
		return u, nil

	case models.NamespaceRevokedRetrievableGroupMessages:
		u.custom = &protocol.LibSessionMessage{Ciphertext: data}
		u.sender = o.PublicKey
		u.sentTimestampMs = o.ServerTimestampMs
		u.threadVariant = models.ThreadVariantGroup
		u.threadID = fixedThread(o.PublicKey)
		return u, nil

	case models.NamespaceLegacyClosedGroup:
		return nil, apperrors.DeprecatedMessage(o.Namespace.String())
	}

	if o.Namespace.IsConfigNamespace() {
		return nil, apperrors.InvalidConfigMessageHandling()
	}
	return nil, apperrors.InvalidMessage("unsupported namespace").WithContext("namespace", o.Namespace.String())
}
