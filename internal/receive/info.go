package receive

import (
	"github.com/sirupsen/logrus"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// CallState is the outcome recorded on a call info interaction.
type CallState string

const (
	CallStateIncoming CallState = "incoming"
	CallStateOutgoing CallState = "outgoing"
	CallStateMissed   CallState = "missed"
)

// CallInfo is the body of an infoCall interaction.
type CallInfo struct {
	UUID  string    `json:"uuid"`
	State CallState `json:"state"`
}

// ExtractionInfo is the body of screenshot and media-saved interactions.
type ExtractionInfo struct {
	Sender string `json:"sender"`
}

// handleCallMessage records a call attempt. Only the pre-offer is persisted;
// the signalling messages that follow belong to the live call.
func (r *Receiver) handleCallMessage(hc *handleContext, m *protocol.CallMessage) (*models.InsertedInteractionInfo, error) {
	if hc.variant != models.ThreadVariantContact {
		return nil, apperrors.InvalidMessage("call outside a 1:1 thread")
	}
	if m.CallKind != protocol.CallPreOffer {
		r.fields(logrus.Fields{
			LogFieldThreadID:    hc.threadID,
			LogFieldMessageKind: m.Kind().String(),
		}).Debug("Ignoring call signalling message")
		return nil, nil
	}

	thread, err := r.ensureThread(hc, m.SentTimestampMs)
	if err != nil {
		return nil, err
	}

	state := CallStateIncoming
	switch {
	case m.Sender == r.deps.UserSessionID:
		state = CallStateOutgoing
	default:
		contact, err := hc.store.FetchContact(m.Sender)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load contact", err)
		}
		if contact == nil || !contact.IsApproved {
			state = CallStateMissed
		}
	}

	stored, created, err := r.storeInfoInteraction(hc, m, models.InteractionInfoCall, CallInfo{UUID: m.UUID, State: state})
	if err != nil {
		return nil, err
	}
	if created && state != CallStateOutgoing && !stored.WasRead {
		r.notifyAfterCommit(hc, thread, stored)
	}
	return insertedInfo(stored), nil
}

func (r *Receiver) handleDataExtraction(hc *handleContext, m *protocol.DataExtractionNotification) (*models.InsertedInteractionInfo, error) {
	if hc.variant != models.ThreadVariantContact {
		return nil, apperrors.InvalidMessage("data extraction outside a 1:1 thread")
	}
	if _, err := r.ensureThread(hc, m.SentTimestampMs); err != nil {
		return nil, err
	}

	variant := models.InteractionInfoScreenshotNotification
	if m.ExtractionKind == protocol.ExtractionMediaSaved {
		variant = models.InteractionInfoMediaSavedNotification
	}
	return r.insertInfoInteraction(hc, m, variant, ExtractionInfo{Sender: m.Sender})
}

// handleMessageRequestResponse records that the sender accepted our message
// request. Declines carry no state and produce nothing.
func (r *Receiver) handleMessageRequestResponse(hc *handleContext, m *protocol.MessageRequestResponse) (*models.InsertedInteractionInfo, error) {
	if hc.variant != models.ThreadVariantContact {
		return nil, apperrors.InvalidMessage("message request response outside a 1:1 thread")
	}
	if m.Profile != nil {
		if _, err := hc.store.UpsertContactProfile(m.Sender, m.Profile.DisplayName, m.Profile.ProfilePictureURL,
			m.Profile.ProfileKey, m.SentTimestampMs); err != nil {
			return nil, apperrors.NewDatabaseError("upsert profile", err)
		}
	}
	if !m.IsApproved {
		return nil, nil
	}

	if err := hc.store.SetContactDidApproveMe(m.Sender, true); err != nil {
		return nil, apperrors.NewDatabaseError("mark contact approved me", err)
	}
	if _, err := r.ensureThread(hc, m.SentTimestampMs); err != nil {
		return nil, err
	}
	return r.insertInfoInteraction(hc, m, models.InteractionInfoMessageRequestAccepted, ExtractionInfo{Sender: m.Sender})
}

// handleExpirationTimerUpdate applies a disappearing-message setting change.
// Repeats of the current setting are dropped without an info interaction.
func (r *Receiver) handleExpirationTimerUpdate(hc *handleContext, m *protocol.ExpirationTimerUpdate) (*models.InsertedInteractionInfo, error) {
	if hc.variant == models.ThreadVariantCommunity {
		return nil, apperrors.InvalidMessage("disappearing messages are not supported in communities")
	}
	thread, err := r.ensureThread(hc, m.SentTimestampMs)
	if err != nil {
		return nil, err
	}

	cfg := disappearingConfigFor(hc.variant, m)
	if cfg == thread.Disappearing {
		return nil, nil
	}
	if err := hc.store.UpdateThreadDisappearing(hc.threadID, cfg); err != nil {
		return nil, apperrors.NewDatabaseError("update disappearing config", err)
	}
	r.fields(logrus.Fields{
		LogFieldThreadID:      hc.threadID,
		LogFieldThreadVariant: hc.variant,
	}).WithField("duration_seconds", cfg.DurationSeconds).Info("Disappearing messages setting changed")

	return r.insertInfoInteraction(hc, m, models.InteractionInfoDisappearingMessagesUpdate, cfg)
}

func disappearingConfigFor(variant models.ThreadVariant, m *protocol.ExpirationTimerUpdate) models.DisappearingConfig {
	if m.DurationSeconds == 0 {
		return models.DisappearingConfig{}
	}
	typ := m.ExpiresType
	if typ == models.DisappearingUnknown {
		typ = models.DisappearAfterSend
		if variant == models.ThreadVariantContact {
			typ = models.DisappearAfterRead
		}
	}
	return models.DisappearingConfig{Enabled: true, Type: typ, DurationSeconds: m.DurationSeconds}
}
