package receive

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"swarmsync/internal/constants"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
	"swarmsync/internal/tracing"
)

// Receiver turns raw deliveries into stored conversation state:
// Parse, then Handle and PostHandle inside one write transaction.
type Receiver struct {
	deps        Dependencies
	logger      *logrus.Logger
	typing      *TypingRegistry
	keyRequests *KeyPairRequestCache
}

func New(deps Dependencies) *Receiver {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AppState == nil {
		deps.AppState = func() models.ApplicationState { return models.ApplicationActive }
	}
	if deps.TypingTimeout <= 0 {
		deps.TypingTimeout = constants.DefaultTypingIndicatorTimeoutSec * time.Second
	}
	if deps.KeyPairRequestInterval <= 0 {
		deps.KeyPairRequestInterval = constants.DefaultKeyPairRequestIntervalSec * time.Second
	}
	return &Receiver{
		deps:        deps,
		logger:      deps.Logger,
		typing:      NewTypingRegistry(deps.TypingTimeout),
		keyRequests: NewKeyPairRequestCache(deps.KeyPairRequestInterval),
	}
}

func (r *Receiver) now() time.Time {
	return r.deps.Now()
}

// TypingIn lists the senders currently typing in a thread.
func (r *Receiver) TypingIn(threadID string) []string {
	return r.typing.Typing(threadID, r.now())
}

// GroupKeysUpdated lifts the request throttle for groups whose keys were just
// supplied, so a later decryption failure asks again straight away.
func (r *Receiver) GroupKeysUpdated(groupIDs ...string) {
	for _, id := range groupIDs {
		r.keyRequests.Forget(id)
	}
}

// HandleOptions tunes side effects of a single Handle call.
type HandleOptions struct {
	// SuppressNotifications stores the message without alerting the user.
	SuppressNotifications bool
}

// handleContext carries the per-call arguments every variant handler needs.
type handleContext struct {
	ctx                       context.Context
	store                     Store
	threadID                  string
	variant                   models.ThreadVariant
	serverExpirationTimestamp int64
	content                   *protocol.Content
	opts                      HandleOptions
}

// Handle applies one classified message to storage. It runs the outdated
// guard first, so a rejected message leaves storage untouched.
func (r *Receiver) Handle(
	ctx context.Context,
	store Store,
	threadID string,
	variant models.ThreadVariant,
	msg protocol.Message,
	serverExpirationTimestamp int64,
	content *protocol.Content,
	opts HandleOptions,
) (*models.InsertedInteractionInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "receive.handle",
		attribute.String("message_kind", msg.Kind().String()),
		attribute.String("thread_variant", string(variant)),
	)
	defer span.End()

	if content == nil {
		content = &protocol.Content{}
	}
	if err := r.checkOutdated(msg, threadID, variant); err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	r.updateDisappearingVersion(store, msg, variant, content)

	hc := &handleContext{
		ctx:                       ctx,
		store:                     store,
		threadID:                  threadID,
		variant:                   variant,
		serverExpirationTimestamp: serverExpirationTimestamp,
		content:                   content,
		opts:                      opts,
	}
	info, err := r.dispatch(hc, msg)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	return info, nil
}

func (r *Receiver) dispatch(hc *handleContext, msg protocol.Message) (*models.InsertedInteractionInfo, error) {
	switch m := msg.(type) {
	case *protocol.VisibleMessage:
		return r.handleVisibleMessage(hc, m)
	case *protocol.ReadReceipt:
		return r.handleReadReceipt(hc, m)
	case *protocol.TypingIndicator:
		return r.handleTypingIndicator(hc, m)
	case *protocol.ExpirationTimerUpdate:
		return r.handleExpirationTimerUpdate(hc, m)
	case *protocol.UnsendRequest:
		return r.handleUnsendRequest(hc, m)
	case *protocol.CallMessage:
		return r.handleCallMessage(hc, m)
	case *protocol.MessageRequestResponse:
		return r.handleMessageRequestResponse(hc, m)
	case *protocol.DataExtractionNotification:
		return r.handleDataExtraction(hc, m)
	case *protocol.GroupUpdateInvite:
		return r.handleGroupInvite(hc, m)
	case *protocol.GroupUpdatePromote:
		return r.handleGroupPromote(hc, m)
	case *protocol.GroupUpdateInfoChange:
		return r.handleGroupInfoChange(hc, m)
	case *protocol.GroupUpdateMemberChange:
		return r.handleGroupMemberChange(hc, m)
	case *protocol.GroupUpdateMemberLeft:
		return r.handleGroupMemberLeft(hc, m)
	case *protocol.GroupUpdateMemberLeftNotification:
		return r.handleGroupMemberLeftNotification(hc, m)
	case *protocol.GroupUpdateInviteResponse:
		return r.handleGroupInviteResponse(hc, m)
	case *protocol.GroupUpdateDeleteMemberContent:
		return r.handleGroupDeleteMemberContent(hc, m)
	case *protocol.LibSessionMessage:
		return r.handleLibSessionMessage(hc, m)
	}
	return nil, apperrors.UnknownMessage(msg.Kind().String())
}

// updateDisappearingVersion records which disappearing-message convention the
// sender's client uses. Failures are logged and never block handling.
func (r *Receiver) updateDisappearingVersion(store Store, msg protocol.Message, variant models.ThreadVariant, content *protocol.Content) {
	if variant == models.ThreadVariantCommunity {
		return
	}
	switch msg.(type) {
	case *protocol.VisibleMessage, *protocol.ExpirationTimerUpdate:
	default:
		return
	}
	sender := msg.Base().Sender
	if sender == "" || sender == r.deps.UserSessionID {
		return
	}

	var version models.ClientVersion
	switch {
	case protocol.UsesLegacyDisappearing(content):
		version = models.ClientVersionLegacyDisappearing
	case content.ExpirationType != 0 || content.ExpirationTimer != 0:
		version = models.ClientVersionNewDisappearing
	default:
		return
	}

	if _, err := store.SetContactClientVersion(sender, version); err != nil {
		r.fields(logrus.Fields{LogFieldSender: sender}).
			WithError(err).Warn("Failed to update disappearing messages version")
	}
}

// Process handles a parsed standard message and reconciles thread state
// afterwards. It must be called inside the write transaction backing store.
func (r *Receiver) Process(ctx context.Context, store Store, msg *StandardMessage, opts HandleOptions) (*models.InsertedInteractionInfo, error) {
	info, err := r.Handle(ctx, store, msg.ThreadID, msg.ThreadVariant, msg.Message,
		msg.Info.ServerExpirationTimestamp, msg.Content, opts)
	if err != nil {
		return nil, err
	}
	if err := r.PostHandle(ctx, store, msg.ThreadID, msg.ThreadVariant, msg.Message, info); err != nil {
		return info, err
	}
	return info, nil
}

// MergeConfig forwards a config-namespace message to the config-sync subsystem.
func (r *Receiver) MergeConfig(ctx context.Context, msg *ConfigMessage) error {
	if r.deps.ConfigSink == nil {
		r.fields(logrus.Fields{
			LogFieldNamespace:  msg.Namespace.String(),
			LogFieldServerHash: msg.ServerHash,
		}).Debug("Skipping config message: no config sink")
		return nil
	}
	return r.deps.ConfigSink.MergeConfig(ctx, msg)
}

func (r *Receiver) requestGroupKeys(ctx context.Context, groupID string) {
	if r.deps.ConfigSink == nil || !r.keyRequests.ShouldRequest(groupID, r.now()) {
		return
	}
	r.fields(logrus.Fields{"group_id": groupID}).Info("Requesting missing group keys")
	r.deps.ConfigSink.RequestGroupKeys(ctx, groupID)
}
