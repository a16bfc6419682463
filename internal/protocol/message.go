package protocol

import (
	"swarmsync/internal/models"
)

// Message is the sealed union of every receivable variant. The unexported
// marker method keeps implementations inside this package so the dispatcher's
// type switch stays exhaustive.
type Message interface {
	Kind() Kind
	Base() *Common
	IsValid(isSending bool) bool
	IsSelfSendValid() bool
	ProcessWithBlockedSender() bool
	isMessage()
}

// Common holds the attributes every variant carries.
type Common struct {
	Sender                   string
	ServerHash               string
	SentTimestampMs          int64
	SigTimestampMs           int64
	ReceivedTimestampMs      int64
	OpenGroupServerMessageID int64
	OpenGroupWhisper         bool
	OpenGroupWhisperMods     bool
	OpenGroupWhisperTo       string
	// ExpiresInSeconds and ExpiresType are left zero for community threads.
	ExpiresInSeconds uint32
	ExpiresType      models.DisappearingType
}

func (c *Common) Base() *Common { return c }

func (c *Common) isMessage() {}

// IsValid is the shared precondition every variant's IsValid builds on.
func (c *Common) IsValid(isSending bool) bool {
	if c.SentTimestampMs <= 0 {
		return false
	}
	return isSending || c.Sender != ""
}

func (c *Common) IsSelfSendValid() bool { return false }

func (c *Common) ProcessWithBlockedSender() bool { return false }

// Profile is the display metadata a sender embeds in its messages.
type Profile struct {
	DisplayName       string
	ProfilePictureURL string
	ProfileKey        []byte
}

type Attachment struct {
	ServerID    uint64
	ContentType string
	Key         []byte
	Size        uint32
	Digest      []byte
	FileName    string
	Width       uint32
	Height      uint32
	Caption     string
	URL         string
}

// IsValid is true once the attachment has a download URL.
func (a Attachment) IsValid() bool {
	return a.URL != ""
}

type Quote struct {
	TimestampMs int64
	AuthorID    string
	Text        string
}

type LinkPreview struct {
	URL   string
	Title string
}

type Reaction struct {
	TimestampMs int64
	AuthorID    string
	Emoji       string
	Action      ReactionAction
}

type VisibleMessage struct {
	Common
	// SyncTarget is set on copies a user's other devices send to themselves.
	SyncTarget  string
	Text        string
	Attachments []Attachment
	Quote       *Quote
	LinkPreview *LinkPreview
	Profile     *Profile
	Reaction    *Reaction
}

func (m *VisibleMessage) Kind() Kind { return KindVisibleMessage }

func (m *VisibleMessage) IsValid(isSending bool) bool {
	if !m.Common.IsValid(isSending) {
		return false
	}
	return len(m.Attachments) > 0 || m.Reaction != nil || m.Text != ""
}

func (m *VisibleMessage) IsSelfSendValid() bool { return m.SyncTarget != "" }

// ValidAttachments returns the attachments that can be downloaded.
func (m *VisibleMessage) ValidAttachments() []Attachment {
	var out []Attachment
	for _, a := range m.Attachments {
		if a.IsValid() {
			out = append(out, a)
		}
	}
	return out
}

type ReadReceipt struct {
	Common
	TimestampsMs []int64
}

func (m *ReadReceipt) Kind() Kind { return KindReadReceipt }

func (m *ReadReceipt) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && len(m.TimestampsMs) > 0
}

func (m *ReadReceipt) IsSelfSendValid() bool { return true }

type TypingIndicator struct {
	Common
	Action TypingAction
}

func (m *TypingIndicator) Kind() Kind { return KindTypingIndicator }

func (m *TypingIndicator) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && (m.Action == TypingStarted || m.Action == TypingStopped)
}

type ExpirationTimerUpdate struct {
	Common
	SyncTarget      string
	DurationSeconds uint32
	// LegacyFormat is set when the duration came from the data message rather than the content.
	LegacyFormat bool
}

func (m *ExpirationTimerUpdate) Kind() Kind { return KindExpirationTimerUpdate }

func (m *ExpirationTimerUpdate) IsValid(isSending bool) bool { return m.Common.IsValid(isSending) }

func (m *ExpirationTimerUpdate) IsSelfSendValid() bool { return m.SyncTarget != "" }

type UnsendRequest struct {
	Common
	TargetTimestampMs int64
	Author            string
}

func (m *UnsendRequest) Kind() Kind { return KindUnsendRequest }

func (m *UnsendRequest) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && m.TargetTimestampMs > 0 && m.Author != ""
}

func (m *UnsendRequest) IsSelfSendValid() bool { return true }

type CallMessage struct {
	Common
	CallKind CallKind
	SDPs     []string
	UUID     string
}

func (m *CallMessage) Kind() Kind { return KindCallMessage }

func (m *CallMessage) IsValid(isSending bool) bool {
	if !m.Common.IsValid(isSending) || m.UUID == "" {
		return false
	}
	switch m.CallKind {
	case CallOffer, CallAnswer, CallProvisionalAnswer, CallIceCandidates:
		return len(m.SDPs) > 0
	case CallPreOffer, CallEndCall:
		return true
	default:
		return false
	}
}

func (m *CallMessage) IsSelfSendValid() bool { return true }

type MessageRequestResponse struct {
	Common
	IsApproved bool
	Profile    *Profile
}

func (m *MessageRequestResponse) Kind() Kind { return KindMessageRequestResponse }

func (m *MessageRequestResponse) IsValid(isSending bool) bool { return m.Common.IsValid(isSending) }

type DataExtractionNotification struct {
	Common
	ExtractionKind ExtractionKind
}

func (m *DataExtractionNotification) Kind() Kind { return KindDataExtractionNotification }

func (m *DataExtractionNotification) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) &&
		(m.ExtractionKind == ExtractionScreenshot || m.ExtractionKind == ExtractionMediaSaved)
}

const signatureSize = 64

type GroupUpdateInvite struct {
	Common
	GroupSessionID string
	GroupName      string
	MemberAuthData []byte
	AdminSignature []byte
}

func (m *GroupUpdateInvite) Kind() Kind { return KindGroupUpdateInvite }

func (m *GroupUpdateInvite) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) &&
		models.IsGroupID(m.GroupSessionID) &&
		m.GroupName != "" &&
		len(m.MemberAuthData) > 0 &&
		len(m.AdminSignature) == signatureSize
}

type GroupUpdatePromote struct {
	Common
	GroupIdentitySeed []byte
	GroupName         string
}

func (m *GroupUpdatePromote) Kind() Kind { return KindGroupUpdatePromote }

func (m *GroupUpdatePromote) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && len(m.GroupIdentitySeed) == 32
}

type GroupUpdateInfoChange struct {
	Common
	ChangeType               InfoChangeType
	UpdatedName              string
	UpdatedExpirationSeconds uint32
	AdminSignature           []byte
}

func (m *GroupUpdateInfoChange) Kind() Kind { return KindGroupUpdateInfoChange }

func (m *GroupUpdateInfoChange) IsValid(isSending bool) bool {
	if !m.Common.IsValid(isSending) || len(m.AdminSignature) != signatureSize {
		return false
	}
	switch m.ChangeType {
	case InfoChangeName, InfoChangeAvatar, InfoChangeDisappearingMessages:
		return true
	default:
		return false
	}
}

func (m *GroupUpdateInfoChange) IsSelfSendValid() bool { return true }

func (m *GroupUpdateInfoChange) ProcessWithBlockedSender() bool { return true }

type GroupUpdateMemberChange struct {
	Common
	ChangeType       MemberChangeType
	MemberSessionIDs []string
	HistoryShared    bool
	AdminSignature   []byte
}

func (m *GroupUpdateMemberChange) Kind() Kind { return KindGroupUpdateMemberChange }

func (m *GroupUpdateMemberChange) IsValid(isSending bool) bool {
	if !m.Common.IsValid(isSending) || len(m.AdminSignature) != signatureSize || len(m.MemberSessionIDs) == 0 {
		return false
	}
	switch m.ChangeType {
	case MemberChangeAdded, MemberChangeRemoved, MemberChangePromoted:
		return true
	default:
		return false
	}
}

func (m *GroupUpdateMemberChange) IsSelfSendValid() bool { return true }

func (m *GroupUpdateMemberChange) ProcessWithBlockedSender() bool { return true }

type GroupUpdateMemberLeft struct {
	Common
}

func (m *GroupUpdateMemberLeft) Kind() Kind { return KindGroupUpdateMemberLeft }

type GroupUpdateMemberLeftNotification struct {
	Common
}

func (m *GroupUpdateMemberLeftNotification) Kind() Kind { return KindGroupUpdateMemberLeftNotification }

func (m *GroupUpdateMemberLeftNotification) IsSelfSendValid() bool { return true }

type GroupUpdateInviteResponse struct {
	Common
	IsApproved bool
}

func (m *GroupUpdateInviteResponse) Kind() Kind { return KindGroupUpdateInviteResponse }

func (m *GroupUpdateInviteResponse) IsSelfSendValid() bool { return true }

type GroupUpdateDeleteMemberContent struct {
	Common
	MemberSessionIDs []string
	MessageHashes    []string
	AdminSignature   []byte
}

func (m *GroupUpdateDeleteMemberContent) Kind() Kind { return KindGroupUpdateDeleteMemberContent }

func (m *GroupUpdateDeleteMemberContent) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && (len(m.MemberSessionIDs) > 0 || len(m.MessageHashes) > 0)
}

func (m *GroupUpdateDeleteMemberContent) IsSelfSendValid() bool { return true }

func (m *GroupUpdateDeleteMemberContent) ProcessWithBlockedSender() bool { return true }

// LibSessionMessage carries group-encrypted out-of-band instructions from the
// revoked-retrievable namespace. Its ciphertext is decrypted by the handler.
type LibSessionMessage struct {
	Common
	Ciphertext []byte
}

func (m *LibSessionMessage) Kind() Kind { return KindLibSessionMessage }

func (m *LibSessionMessage) IsValid(isSending bool) bool {
	return m.Common.IsValid(isSending) && len(m.Ciphertext) > 0
}

func (m *LibSessionMessage) IsSelfSendValid() bool { return true }

func (m *LibSessionMessage) ProcessWithBlockedSender() bool { return true }
