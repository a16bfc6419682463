package receive

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
	"swarmsync/internal/tracing"
)

// Parse unwraps and classifies one raw delivery. Config-namespace deliveries
// are returned untouched for the config-sync subsystem.
func (r *Receiver) Parse(ctx context.Context, data []byte, origin models.Origin) (*ProcessedMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "receive.parse", attribute.String("origin", string(origin.Kind)))
	defer span.End()

	processed, err := r.parse(ctx, data, origin)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	return processed, nil
}

func (r *Receiver) parse(ctx context.Context, data []byte, origin models.Origin) (*ProcessedMessage, error) {
	if err := origin.Validate(); err != nil {
		return nil, apperrors.InvalidMessageCause(err, "invalid origin")
	}

	if origin.IsConfigNamespace() {
		s := origin.Swarm
		return &ProcessedMessage{Config: &ConfigMessage{
			PublicKey:         s.PublicKey,
			Namespace:         s.Namespace,
			ServerHash:        s.ServerHash,
			ServerTimestampMs: s.ServerTimestampMs,
			Data:              data,
			UniqueIdentifier:  s.ServerHash,
		}}, nil
	}

	u, err := r.unwrap(ctx, data, origin)
	if err != nil {
		return nil, err
	}
	std, err := r.classify(u, origin)
	if err != nil {
		return nil, err
	}
	return &ProcessedMessage{Standard: std}, nil
}

// classify builds the message, attaches delivery metadata and applies the
// acceptance checks in order: blocked sender, self send, community control
// message, structural validity.
func (r *Receiver) classify(u *unwrapped, origin models.Origin) (*StandardMessage, error) {
	content := &protocol.Content{}
	msg := u.custom
	if msg == nil {
		decoded, err := protocol.DecodeContent(u.plaintext)
		if err != nil {
			return nil, apperrors.InvalidMessageCause(err, "malformed content")
		}
		built, err := protocol.FromContent(decoded)
		if errors.Is(err, protocol.ErrUnknownContent) {
			return nil, apperrors.UnknownMessage("unrecognised content")
		}
		if err != nil {
			return nil, apperrors.InvalidMessageCause(err, "malformed content")
		}
		content, msg = decoded, built
	}

	base := msg.Base()
	base.Sender = u.sender
	base.ServerHash = u.serverHash
	base.SentTimestampMs = u.sentTimestampMs
	base.SigTimestampMs = int64(content.SigTimestampMs)
	base.ReceivedTimestampMs = r.now().UnixMilli()
	base.OpenGroupServerMessageID = u.openGroupServerMessageID
	base.OpenGroupWhisper = u.whisper
	base.OpenGroupWhisperMods = u.whisperMods
	base.OpenGroupWhisperTo = u.whisperTo

	if u.threadVariant != models.ThreadVariantCommunity {
		protocol.ApplyDisappearingConfig(msg, content)
	}
	if vm, ok := msg.(*protocol.VisibleMessage); ok && u.syncTarget != "" && vm.SyncTarget == "" {
		vm.SyncTarget = u.syncTarget
	}

	if r.deps.Config.IsContactBlocked(base.Sender) && !msg.ProcessWithBlockedSender() {
		return nil, apperrors.SenderBlocked()
	}
	if base.Sender == r.deps.UserSessionID && !msg.IsSelfSendValid() && !isCommunityEcho(origin, msg) {
		return nil, apperrors.SelfSend()
	}
	if origin.Kind == models.OriginCommunity && msg.Kind() != protocol.KindVisibleMessage {
		return nil, apperrors.InvalidMessage("control message sent to community").
			WithContext("kind", msg.Kind().String())
	}
	if !msg.IsValid(false) {
		return nil, apperrors.InvalidMessage("message failed validation").
			WithContext("kind", msg.Kind().String())
	}

	return &StandardMessage{
		ThreadID:         u.threadID(msg),
		ThreadVariant:    u.threadVariant,
		Namespace:        u.namespace,
		Message:          msg,
		Content:          content,
		Info:             protocol.NewMessageInfo(msg, content, u.threadVariant, origin.ServerExpirationTimestamp()),
		UniqueIdentifier: u.uniqueIdentifier,
	}, nil
}

// isCommunityEcho reports a room post authored by this account under its
// unblinded id. The room server relays it back like any other post.
func isCommunityEcho(origin models.Origin, msg protocol.Message) bool {
	return origin.Kind == models.OriginCommunity && msg.Kind() == protocol.KindVisibleMessage
}
